package handler

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_systempay/internal/utils"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// MerchantHandler exposes the merchant configuration schema and the static
// catalogs of the payment page.
type MerchantHandler struct {
	schema   systempay.FieldSchema
	merchant systempay.MerchantConfig
}

// NewMerchantHandler constructs a MerchantHandler.
func NewMerchantHandler(schema systempay.FieldSchema, merchant systempay.MerchantConfig) *MerchantHandler {
	return &MerchantHandler{schema: schema, merchant: merchant}
}

// GetSchema handles GET /v1/admin/systempay/schema
func (h *MerchantHandler) GetSchema(c *gin.Context) {
	configErr := ""
	if err := h.schema.Validate(h.merchant); err != nil {
		configErr = err.Error()
	}
	utils.Success(c, 200, "Schema retrieved", gin.H{
		"schema":      h.schema,
		"siteId":      h.merchant.SiteID,
		"ctxMode":     h.merchant.CtxMode(),
		"signAlgo":    h.merchant.Algorithm,
		"gatewayUrl":  h.merchant.GatewayURL,
		"configValid": configErr == "",
		"configError": configErr,
	})
}

type catalogEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func sortedCatalog(m map[string]string) []catalogEntry {
	out := make([]catalogEntry, 0, len(m))
	for code, name := range m {
		out = append(out, catalogEntry{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// GetCatalog handles GET /v1/admin/systempay/catalog
func (h *MerchantHandler) GetCatalog(c *gin.Context) {
	currencies := make([]gin.H, 0)
	for _, cur := range systempay.Currencies() {
		currencies = append(currencies, gin.H{
			"alpha":    cur.Alpha,
			"numeric":  cur.Numeric,
			"exponent": cur.Exponent,
		})
	}
	utils.Success(c, 200, "Catalog retrieved", gin.H{
		"currencies": currencies,
		"languages":  sortedCatalog(systempay.Languages),
		"cards":      sortedCatalog(systempay.Cards),
	})
}
