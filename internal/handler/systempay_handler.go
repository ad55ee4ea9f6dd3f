package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/internal/service"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// Texts answered to the gateway on the IPN channel.
const (
	ipnAccepted = "Accepted payment, order has been updated."
	ipnRefused  = "Payment failure, order has been cancelled."
)

// CallbackHandlerService is the part of service.GatewayService used by
// SystempayHandler.
type CallbackHandlerService interface {
	HandleCallback(ctx context.Context, channel string, payload map[string]string, remoteIP string) (*service.CallbackResult, error)
	ReturnURL(result *service.CallbackResult) string
}

// SystempayHandler receives the customer return and the server
// notification from the gateway. It is not behind API key auth: the
// payload signature authenticates the request.
type SystempayHandler struct {
	gatewayService CallbackHandlerService
}

// NewSystempayHandler constructs a SystempayHandler.
func NewSystempayHandler(gatewayService CallbackHandlerService) *SystempayHandler {
	return &SystempayHandler{gatewayService: gatewayService}
}

// Return handles GET and POST /payment/systempay/return
func (h *SystempayHandler) Return(c *gin.Context) {
	payload := callbackPayload(c)
	result, err := h.gatewayService.HandleCallback(c.Request.Context(), models.ChannelReturn, payload, c.ClientIP())
	if err != nil {
		log.Warn().Err(err).Str("reference", payload["vads_order_id"]).Msg("Return callback rejected")
	}
	c.Redirect(http.StatusFound, h.gatewayService.ReturnURL(result))
}

// Notify handles POST /payment/systempay/ipn
func (h *SystempayHandler) Notify(c *gin.Context) {
	payload := callbackPayload(c)
	result, err := h.gatewayService.HandleCallback(c.Request.Context(), models.ChannelIPN, payload, c.ClientIP())
	if err != nil {
		c.String(ipnStatus(err), err.Error())
		return
	}
	if result.Accepted {
		c.String(http.StatusOK, ipnAccepted)
		return
	}
	c.String(http.StatusOK, ipnRefused)
}

func ipnStatus(err error) int {
	switch {
	case errors.Is(err, systempay.ErrMalformedCallback),
		errors.Is(err, systempay.ErrSignatureMismatch),
		errors.Is(err, systempay.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, systempay.ErrOrderLookup):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// callbackPayload reads the gateway fields from the query string on GET and
// from the form body on POST. Repeated keys keep their first value.
func callbackPayload(c *gin.Context) map[string]string {
	var values url.Values
	if c.Request.Method == http.MethodGet {
		values = c.Request.URL.Query()
	} else {
		if err := c.Request.ParseForm(); err != nil {
			log.Warn().Err(err).Msg("Failed to parse gateway form")
		}
		values = c.Request.PostForm
	}

	payload := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}
	return payload
}
