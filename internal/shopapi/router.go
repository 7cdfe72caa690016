package shopapi

// InitRouter registers every handler group with the webserver.
func InitRouter() {
	registerSystemRoutes()
	registerAuthRoutes()
	registerProfileRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerCartRoutes()
	registerOrderRoutes()
	registerPaymentRoutes()
	registerAdminProductRoutes()
	registerAdminOrderRoutes()
}
