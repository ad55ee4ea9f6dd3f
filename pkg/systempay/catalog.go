package systempay

// Languages supported by the payment page.
var Languages = map[string]string{
	"cn": "Chinese",
	"de": "German",
	"es": "Spanish",
	"en": "English",
	"fr": "French",
	"it": "Italian",
	"jp": "Japanese",
	"nl": "Dutch",
	"pl": "Polish",
	"pt": "Portuguese",
	"ru": "Russian",
	"sv": "Swedish",
	"tr": "Turkish",
}

// Cards lists the payment means that can be restricted in vads_payment_cards.
var Cards = map[string]string{
	"CB":               "CB",
	"E-CARTEBLEUE":     "e-Carte Bleue",
	"MAESTRO":          "Maestro",
	"MASTERCARD":       "MasterCard",
	"VISA":             "Visa",
	"VISA_ELECTRON":    "Visa Electron",
	"VPAY":             "V PAY",
	"AMEX":             "American Express",
	"AURORE-MULTI":     "Cpay Aurore",
	"BANCONTACT":       "Bancontact Mistercash",
	"CA_DO_CARTE":      "CA DO Carte",
	"COFINOGA":         "Carte Cofinoga Be Smart",
	"CONECS":           "Titre-Restaurant Dématérialisé Conecs",
	"APETIZ":           "Titre-Restaurant Dématérialisé Apetiz",
	"CHQ_DEJ":          "Titre-Restaurant Dématérialisé Chèque Déjeuner",
	"SODEXO":           "Titre-Restaurant Dématérialisé Sodexo",
	"EDENRED":          "Ticket Restaurant",
	"JOUECLUB_CDX":     "Carte Cadeau Joué Club",
	"JOUECLUB_CDX_SB":  "Carte Cadeau Joué Club (sandbox)",
	"DINERS":           "Carte Diners Club",
	"DISCOVER":         "Carte Discover",
	"ECCARD":           "Euro-Cheque card",
	"EPNF_3X":          "Paiment Choozeo 3X",
	"EPNF_4X":          "Paiment Choozeo 4X",
	"GOOGLEPAY":        "Google Pay",
	"GIROPAY":          "Giropay",
	"IDEAL":            "iDEAL",
	"ILLICADO":         "Carte Cadeau Illicado",
	"ILLICADO_SB":      "Carte Cadeau Illicado - Sandbox",
	"JCB":              "JCB",
	"KLARNA":           "Klarna Internet Banking",
	"MASTERPASS":       "MasterPass",
	"ONEY":             "FacilyPay Oney",
	"ONEY_SANDBOX":     "FacilyPay Oney - Sandbox",
	"ONEY_3X_4X":       "Paiement en 3 ou 4 fois Oney",
	"PAYLIB":           "Wallet Paylib",
	"PAYPAL":           "PayPal",
	"PAYPAL_SB":        "PayPal - Sandbox",
	"POSTFINANCE":      "PostFinance",
	"POSTFINANCE_EFIN": "PostFinance E-finance",
	"SDD":              "Prélèvement SEPA Direct Debit",
	"SOFICARTE":        "Soficarte",
	"SOFORT_BANKING":   "Sofort",
	"ONEY_ENSEIGNE":    "Cartes enseignes Oney",
}
