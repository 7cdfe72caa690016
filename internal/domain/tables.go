package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	// Accounts
	&User{},
	&Role{},
	// Catalog
	&Category{},
	&Product{},
	// Cart
	&Cart{},
	&CartItem{},
	// Orders
	&Order{},
	&OrderDetail{},
}
