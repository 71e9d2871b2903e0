package datasets

import "github.com/JonMunkholm/mongoetl/internal/core"

func init() {
	registerAmazonSales()
}

// AmazonSales is the key of the Amazon sales report dataset.
const AmazonSales = "amazon_sales"

func registerAmazonSales() {
	core.Register(core.DatasetDefinition{
		Key:     AmazonSales,
		Label:   "Amazon sales report",
		Staging: "amazon",
		Operations: []core.Operation{
			{Op: core.OpNormalizeHeaders},
			{Op: core.OpToDatetime, Columns: []string{"Date"}},
			{Op: core.OpToNumeric, Columns: []string{"Amount", "Qty"}},
			{Op: core.OpDropColumns, Columns: []string{
				"_id",
				"index",
				"Unnamed:_22",
				"Style",
				"SKU",
				"Order_ID",
				"ASIN",
				"ship-postal-code",
				"currency",
				"fulfilled-by",
			}},
			{Op: core.OpDropDuplicates},
			{Op: core.OpFillMode, Columns: []string{"Courier_Status"}},
			// Mean is taken before rows without a shipping address are dropped
			{Op: core.OpFillMean, Columns: []string{"Amount"}},
			{Op: core.OpDropMissing, Columns: []string{"ship-city", "ship-state", "ship-country"}},
			{Op: core.OpFillMode, Columns: []string{"promotion-ids"}},
			{Op: core.OpMapValues, Columns: []string{"B2B"}, Mapping: map[string]string{
				"True":  "B2B",
				"False": "B2C",
			}},
		},
	})
}
