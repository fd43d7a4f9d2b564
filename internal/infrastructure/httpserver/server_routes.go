package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.Identity.RequireIdentity())

	api.GET("/news", s.getNews)
	api.GET("/quota", s.getQuota)

	bulletins := api.Group("/bulletins")
	bulletins.GET("/24hrs", s.getLatestBulletin)
	bulletins.POST("/expand", s.expandBulletin)

	ai := api.Group("/ai")
	ai.POST("/summarize", s.summarizeArticle)
	ai.POST("/chat", s.chat)
}
