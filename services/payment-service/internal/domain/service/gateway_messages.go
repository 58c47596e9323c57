package service

import "strings"

// Gateway error texts mapped to messages safe to show the buyer. Keys are
// matched case-insensitively as substrings, in both gateway locales.
var friendlyGatewayMessages = []struct {
	match   []string
	message string
}{
	{[]string{"üye işyeri kategori kodu hatalı", "merchant category code"}, "The payment system is being configured. Please try again later."},
	{[]string{"kart numarası geçersiz", "invalid card number"}, "The card number is invalid. Please check it and try again."},
	{[]string{"geçersiz cvc", "invalid cvc"}, "The security code (CVC) is incorrect."},
	{[]string{"yetersiz bakiye", "insufficient funds"}, "The card does not have sufficient funds."},
	{[]string{"kart limiti yetersiz", "card limit"}, "The card limit is insufficient."},
	{[]string{"işlem reddedildi", "declined"}, "Your bank declined the transaction. Please contact your bank."},
	{[]string{"3d secure doğrulama başarısız", "3d secure", "3ds"}, "3-D Secure verification failed. Please try again."},
}

const genericPaymentFailure = "The payment could not be completed."

// FriendlyGatewayMessage maps a raw gateway error text to a buyer-facing message.
func FriendlyGatewayMessage(raw string) string {
	lower := strings.ToLower(raw)
	if lower == "" {
		return genericPaymentFailure
	}
	for _, m := range friendlyGatewayMessages {
		for _, key := range m.match {
			if strings.Contains(lower, key) {
				return m.message
			}
		}
	}
	return genericPaymentFailure
}

func isThreeDSFailure(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "3d secure") || strings.Contains(lower, "3ds")
}
