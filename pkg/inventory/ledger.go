package inventory

import (
	"time"

	"kyokki-backend/domain"
	"kyokki-backend/entities"

	"github.com/shopspring/decimal"
)

// dateOf truncates t to midnight UTC of its calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ExpiryDate is the purchase date plus the product's shelf life.
func ExpiryDate(purchase time.Time, shelfLifeDays int) time.Time {
	return dateOf(purchase).AddDate(0, 0, shelfLifeDays)
}

// StatusFor derives the status an item moves to after consumption leaves it
// at remaining out of initial.
func StatusFor(remaining, initial decimal.Decimal, previous string) string {
	if remaining.IsZero() {
		return domain.InventoryStatusEmpty
	}
	if !remaining.LessThan(initial) || initial.IsZero() {
		return previous
	}
	if remaining.Div(initial).LessThan(domain.PartialThreshold) {
		return domain.InventoryStatusPartial
	}
	return domain.InventoryStatusOpened
}

// Consume applies quantity to item in place and returns the consumption
// action to log. On error the item is left untouched.
func Consume(item *entities.InventoryItem, quantity decimal.Decimal, now time.Time) (string, error) {
	if !quantity.IsPositive() {
		return "", domain.ErrInvalidQuantity
	}
	if quantity.GreaterThan(item.CurrentQuantity) {
		return "", domain.ErrInsufficientQuantity
	}

	remaining := item.CurrentQuantity.Sub(quantity)
	previous := item.Status

	item.CurrentQuantity = remaining
	item.Status = StatusFor(remaining, item.InitialQuantity, previous)

	if remaining.IsZero() {
		consumedAt := now
		item.ConsumedAt = &consumedAt
		return domain.ConsumptionActionFull, nil
	}

	if remaining.LessThan(item.InitialQuantity) && previous == domain.InventoryStatusSealed {
		opened := dateOf(now)
		item.OpenedDate = &opened
	}
	return domain.ConsumptionActionPartial, nil
}
