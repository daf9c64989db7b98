package models

// ShipmentFilter narrows a shipment listing. Zero values mean "no filter".
type ShipmentFilter struct {
	Query      string
	CustomerID int64
	ProductID  int64
	Mode       Mode
}

// CatalogFilter narrows reference-entity listings. Email applies to customers
// and Country to warehouses and ports; other entities ignore them.
type CatalogFilter struct {
	Query   string
	Email   string
	Country string
}
