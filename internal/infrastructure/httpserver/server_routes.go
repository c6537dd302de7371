package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	records := api.Group("/verification-records")
	records.POST("", s.createVerificationRecord, s.middleware.JWT.RequireJWT())
	records.POST("/batch", s.createVerificationBatch, s.middleware.JWT.RequireJWT())
	records.GET("/:token", s.verifyVerificationRecord, s.middleware.RateLimit.PerClientIP())
	records.POST("/:token/consume", s.consumeVerificationRecord, s.middleware.RateLimit.PerClientIP(), s.middleware.JWT.OptionalJWT())

	protected := api.Group("")
	protected.Use(s.middleware.JWT.RequireJWT())

	protected.GET("/identities/me", s.listOwnIdentities)
	protected.DELETE("/identities/me/:kind", s.deactivateOwnIdentity)
	protected.GET("/audit/logs", s.getAuditLogs)
}
