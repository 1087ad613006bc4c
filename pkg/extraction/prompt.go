package extraction

import (
	"fmt"
	"strings"
)

// MaxReceiptChars bounds how much OCR text is sent to the model. Longer
// receipts are cut; anything past the limit is not extracted.
const MaxReceiptChars = 4000

const promptTemplate = `Analyze this grocery store receipt and extract the products.

Receipt text:
` + "```" + `
%s
` + "```" + `

This receipt may be in any language. Extract each product with:
- name: Product name as written (preserve original language)
- name_en: English translation if not already English (optional)
- quantity: Number of items (default 1)
- weight_kg: Weight in kg if sold by weight (null otherwise)
- volume_l: Volume in liters if applicable (null otherwise)
- unit: "pcs", "kg", "l", or "unit"
- price: Price in local currency (optional)

Also identify:
- store_name: The store name from the header
- store_chain: Parent chain if identifiable
- country: Country code (ISO 3166-1 alpha-2, e.g., "FI", "US", "DE")
- language: Primary language of receipt (ISO 639-1, e.g., "fi", "en", "de")
- currency: Currency code (ISO 4217, e.g., "EUR", "USD")

Important:
- Preserve original product names (don't translate the name field)
- Recognize quantity words in any language (pcs, KPL, Stk, st, szt, шт, 個, pièces)
- Recognize weight/volume units (kg, g, l, ml, oz, lb)
- Handle various decimal separators (. or ,)
- Skip totals, tax lines, deposits, payment info regardless of language
- Only extract actual food/grocery products

Focus on extracting the products accurately. Be conservative - if you're not sure something is a product, skip it.
`

// BuildPrompt renders the extraction instructions around the receipt text.
// A non-empty storeHint appends a disambiguation note.
func BuildPrompt(receiptText, storeHint string) string {
	prompt := fmt.Sprintf(promptTemplate, truncateRunes(receiptText, MaxReceiptChars))

	if hint := strings.TrimSpace(storeHint); hint != "" {
		prompt += fmt.Sprintf("\n\nNote: This receipt appears to be from %s. Use this to help identify the store chain and format.", hint)
	}
	return prompt
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
