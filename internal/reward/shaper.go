package reward

// Flatten sums every recipient's amounts across all dimensions. Recipients
// are case-folded before summing. Zero amounts are kept.
func Flatten(table Table) Allocation {
	out := make(Allocation)
	for _, inner := range table {
		for recipient, amount := range inner {
			out.add(NormalizeRecipient(recipient), amount)
		}
	}
	return out
}

// Aggregate sums allocations element-wise with the same normalization as
// Flatten.
func Aggregate(allocations ...Allocation) Allocation {
	out := make(Allocation)
	for _, alloc := range allocations {
		for recipient, amount := range alloc {
			out.add(NormalizeRecipient(recipient), amount)
		}
	}
	return out
}
