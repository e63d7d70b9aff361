// Package server provides the HTTP boundary for streamed responses: a Gin
// server with HTTP/2 cleartext support, standard middleware, probe endpoints
// and the adapter that writes an encoder's chunks to the client.
//
// A handler builds an encoder and hands it to WriteStream:
//
//	r.GET("/api/events", func(c *gin.Context) {
//	    rows := stream.Own(c.Request.Context(), db.Pool(), eventsQuery)
//	    server.WriteStream(c, server.ContentTypeJSON, stream.NewArrayEncoder[Event](rows))
//	})
//
// Each chunk is flushed as soon as it is produced. Errors the encoder
// reports before the first chunk become regular error responses (see
// RespondStreamError); later ones end the body early and are logged.
//
// # Middleware
//
// Middleware (server/middleware) wraps the whole engine as plain
// http.Handler decorators: Recovery, RequestID, CORS and RequestLogger.
//
// # Endpoints
//
// Endpoints (server/endpoint): /health with component statuses, /live and
// /ready probes, and /info with build details.
package server
