package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSignature signals the x-signature header was absent or empty.
	ErrMissingSignature = errors.New("missing webhook signature")
	// ErrInvalidSignature signals the signature did not match the payload.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// VerifyWebhookSignature checks the x-signature header Mercado Pago attaches
// to webhook deliveries. The signed manifest is built from the resource ID,
// the x-request-id header and the timestamp embedded in the signature header.
func VerifyWebhookSignature(secret, signatureHeader, requestID, dataID string) error {
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrMissingSignature
	}

	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		keyValue := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		switch keyValue[0] {
		case "ts":
			ts = keyValue[1]
		case "v1":
			v1 = keyValue[1]
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrInvalidSignature
	}
	return nil
}
