package catalog

import "veriseal/internal/custody/models"

// defaultFile mirrors the checkpoint network and package classes of the
// original deployment. Temperature bands are in degrees Celsius, shock
// thresholds in m/s^2.
var defaultFile = File{
	Checkpoints: []CheckpointSpec{
		{ID: "CP001", DisplayName: "Warehouse Dispatch", LocationLabel: "Mumbai Warehouse"},
		{ID: "CP002", DisplayName: "Local Hub", LocationLabel: "Mumbai Central Hub"},
		{ID: "CP003", DisplayName: "Transit Hub", LocationLabel: "Delhi Transit Hub"},
		{ID: "CP004", DisplayName: "Destination Hub", LocationLabel: "Bangalore Hub"},
		{ID: "CP005", DisplayName: "Out for Delivery", LocationLabel: "Local Delivery Center"},
		{ID: "CP006", DisplayName: "Delivered", LocationLabel: "Customer Location"},
	},
	PackageTypes: []PackageSpec{
		{Type: "electronics", Label: "Electronics", Thresholds: models.Thresholds{TempMin: -10, TempMax: 45, ShockThreshold: 20}},
		{Type: "jewelry", Label: "Jewelry", Thresholds: models.Thresholds{TempMin: -20, TempMax: 50, ShockThreshold: 25}},
		{Type: "fashion", Label: "Fashion & Apparel", Thresholds: models.Thresholds{TempMin: -20, TempMax: 50, ShockThreshold: 30}},
		{Type: "books", Label: "Books", Thresholds: models.Thresholds{TempMin: -20, TempMax: 50, ShockThreshold: 30}},
		{Type: "gaming", Label: "Gaming", Thresholds: models.Thresholds{TempMin: -10, TempMax: 45, ShockThreshold: 20}},
		{Type: "home", Label: "Home & Kitchen", Thresholds: models.Thresholds{TempMin: -20, TempMax: 50, ShockThreshold: 25}},
		{Type: "medical", Label: "Medical Supplies", Thresholds: models.Thresholds{TempMin: 2, TempMax: 8, ShockThreshold: 15}},
		{Type: "food", Label: "Food", Thresholds: models.Thresholds{TempMin: 0, TempMax: 10, ShockThreshold: 20}},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultFile)
	if err != nil {
		panic("catalog: invalid built-in defaults: " + err.Error())
	}
	return c
}
