package orders

// HasChanged reports whether the proposed snapshot differs from the stored
// record in any field the storefront controls. Only those fields count;
// server-managed fields such as delivery status never trigger an update.
//
// Line items compare positionally, so a reorder of identical items is a
// change. Money compares by decimal value, not by string form.
func HasChanged(existing *StoredOrder, proposed OrderSnapshot) bool {
	if existing == nil {
		return true
	}
	if !itemsEqual(existing.Items, proposed.Items) {
		return true
	}
	if !customerEqual(existing.Customer, proposed.Customer) {
		return true
	}
	if !existing.Subtotal.Equal(proposed.Subtotal) {
		return true
	}
	if !existing.Total.Equal(proposed.Total) {
		return true
	}
	if existing.PaymentStatus != proposed.PaymentStatus {
		return true
	}
	return false
}

func itemsEqual(a, b LineItems) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !lineItemEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Only productId, variant id, quantity, and unit price participate in the
// comparison. Display fields such as the catalog name do not dirty a cart.
func lineItemEqual(a, b LineItem) bool {
	return a.ProductID == b.ProductID &&
		a.Variant.ID == b.Variant.ID &&
		a.Quantity == b.Quantity &&
		a.Price.Equal(b.Price)
}

func customerEqual(a, b *CustomerInfo) bool {
	if a.isZero() != b.isZero() {
		return false
	}
	if a.isZero() {
		return true
	}
	return a.Name == b.Name &&
		a.Email == b.Email &&
		a.WhatsApp == b.WhatsApp &&
		a.DiscountCode == b.DiscountCode
}
