package purchasing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TotalKey labels the grand-total bucket.
const TotalKey = "Total"

// Bucket aggregates quantity and money for one supplier or payment type.
type Bucket struct {
	Key            string          `json:"key"`
	Quantity       decimal.Decimal `json:"cantidad"`
	EstimatedValue decimal.Decimal `json:"valor_estimado"`
	RealValue      decimal.Decimal `json:"valor_real"`
}

func (b *Bucket) add(l Line) {
	b.Quantity = b.Quantity.Add(l.TotalQuantity)
	b.EstimatedValue = b.EstimatedValue.Add(l.EstimatedPrice.Mul(l.TotalQuantity))
	b.RealValue = b.RealValue.Add(l.FinalPrice.Mul(l.TotalQuantity))
}

// Summary is the purchase detail view.
type Summary struct {
	Number       int64    `json:"purchase_number"`
	Suppliers    []Bucket `json:"suppliers"`
	PaymentTypes []Bucket `json:"payment_types"`
	Total        Bucket   `json:"total"`
}

// Summarize groups a purchase by supplier nickname and by payment type.
func Summarize(p Purchase) Summary {
	bySupplier := make(map[string]*Bucket)
	byPayment := make(map[string]*Bucket)
	total := Bucket{Key: TotalKey}
	for _, l := range p.Lines {
		supplier := l.Supplier.Nickname
		payment := l.PaymentType
		if payment == "" {
			payment = PaymentCash
		}
		bucketFor(bySupplier, supplier).add(l)
		bucketFor(byPayment, payment).add(l)
		total.add(l)
	}
	return Summary{
		Number:       p.Number,
		Suppliers:    sortedBuckets(bySupplier),
		PaymentTypes: sortedBuckets(byPayment),
		Total:        total,
	}
}

func bucketFor(m map[string]*Bucket, key string) *Bucket {
	b, ok := m[key]
	if !ok {
		b = &Bucket{Key: key}
		m[key] = b
	}
	return b
}

func sortedBuckets(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
