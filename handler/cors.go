package handler

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/hexword/verify/static"
)

// CORS returns the preflight gate applied uniformly to both verification
// endpoints. Preflight requests are answered with the accepted methods and
// headers, an empty body and a no-content status.
func CORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       static.CORSMethods,
		AllowedHeaders:       static.CORSHeaders,
		MaxAge:               static.CORSMaxAgeSeconds,
		OptionsSuccessStatus: http.StatusNoContent,
	})
}
