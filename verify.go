// The verify service terminates Google sign-in and Play purchase
// verification for mobile and web clients.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/httpx"
	"github.com/m-lab/go/rtx"

	"github.com/hexword/verify/auth/idverifier"
	"github.com/hexword/verify/billing"
	"github.com/hexword/verify/config"
	"github.com/hexword/verify/handler"
	"github.com/hexword/verify/metrics"
	"github.com/hexword/verify/secrets"
	"github.com/hexword/verify/session"
	"github.com/hexword/verify/static"
)

var (
	listenPort           string
	project              string
	oauthAudiences       string
	oauthClientID        string
	audiencesSecret      string
	serviceAccountKey    string
	serviceAccountSecret string
	insecureIDTokens     bool
)

func init() {
	// PORT and GOOGLE_CLOUD_PROJECT are part of the default serverless environment.
	flag.StringVar(&listenPort, "port", "8080", "Port the service listens on")
	flag.StringVar(&project, "google-cloud-project", "", "GCP project hosting the configuration secrets")
	flag.StringVar(&oauthAudiences, "oauth-audiences", "", "Comma-separated list of accepted OAuth client audiences")
	flag.StringVar(&oauthClientID, "oauth-client-id", "", "Legacy single OAuth client id, used when -oauth-audiences is empty")
	flag.StringVar(&audiencesSecret, "oauth-audiences-secret", static.SecretOAuthAudiences, "Secret Manager secret holding the audience allowlist")
	flag.StringVar(&serviceAccountKey, "play-service-account", "", "Play publisher service account key JSON")
	flag.StringVar(&serviceAccountSecret, "play-service-account-secret", static.SecretServiceAccount, "Secret Manager secret holding the Play publisher key")
	flag.BoolVar(&insecureIDTokens, "insecure-id-tokens", false, "Parse ID tokens without signature verification (testing only)")
}

var mainCtx, mainCancel = context.WithCancel(context.Background())

func main() {
	flag.Parse()
	rtx.Must(flagx.ArgsFromEnv(flag.CommandLine), "Could not parse env args")

	// SECRETS - the Secret Manager is the lowest-priority config source and
	// only available when a project is configured.
	var smClient secrets.SecretClient
	if project != "" {
		client, err := secretmanager.NewClient(mainCtx)
		rtx.Must(err, "Failed to create secretmanager client")
		smClient = client
	}

	// AUDIENCES - explicit multi-value list, then the legacy single client
	// id, then the environment names earlier deployments used, then the
	// secret.
	audienceSources := []config.Source{
		config.FlagValue("oauth-audiences", oauthAudiences),
		config.FlagValue("oauth-client-id", oauthClientID),
		config.EnvVar("GOOGLE_OAUTH_AUDIENCES"),
		config.EnvVar("GOOGLE_CLIENT_ID"),
	}
	keySources := []config.Source{
		config.FlagValue("play-service-account", serviceAccountKey),
		config.EnvVar("PLAY_SERVICE_ACCOUNT_JSON"),
	}
	if smClient != nil {
		audienceSources = append(audienceSources, config.SecretValue(secrets.NewConfig(project, audiencesSecret), smClient))
		keySources = append(keySources, config.SecretValue(secrets.NewConfig(project, serviceAccountSecret), smClient))
	}

	rawAudiences, source := config.Resolve(mainCtx, audienceSources...)
	audiences := config.ParseAudiences(rawAudiences)
	if len(audiences) == 0 {
		log.Println("No OAuth audience configured; identity requests will fail closed")
	} else {
		log.Printf("Accepting %d OAuth audience(s) from %s", len(audiences), source)
	}

	// CREDENTIAL - the Play publisher key doubles as the Firebase admin
	// credential for custom token minting.
	var publisher billing.Publisher
	var minter session.Minter
	key, source := config.Resolve(mainCtx, keySources...)
	if key == "" {
		log.Println("No Play service account configured; purchase requests will fail closed")
	} else if _, err := secrets.ParseServiceAccount([]byte(key)); err != nil {
		log.Printf("Ignoring unusable Play service account from %s: %v", source, err)
	} else {
		log.Printf("Using Play service account from %s", source)
		publisher = billing.NewGooglePublisher([]byte(key))
		minter = session.NewFirebaseMinter([]byte(key))
	}

	// VERIFIER - Google certificate validation, or the insecure parser for
	// local testing.
	var verifier idverifier.Verifier
	if insecureIDTokens {
		insecure, err := idverifier.NewInsecureVerifier()
		rtx.Must(err, "Failed to create insecure verifier")
		verifier = insecure
	} else {
		verifier = idverifier.NewGoogleVerifier()
	}

	c := handler.NewClient(verifier, publisher, minter, audiences)
	corsGate := handler.CORS()
	chain := alice.New(corsGate.Handler)

	mux := http.NewServeMux()
	// Clients verify Google sign-in assertions and receive a session token.
	mux.Handle("/v1/identity/verify", chain.Then(instrument("/v1/identity/verify", c.Identity)))
	// Clients verify in-app and subscription purchase tokens.
	mux.Handle("/v1/purchase/verify", chain.Then(instrument("/v1/purchase/verify", c.Purchase)))
	mux.HandleFunc("/v1/live", c.Live)
	mux.HandleFunc("/v1/ready", c.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    ":" + listenPort,
		Handler: mux,
	}
	log.Println("Listening for verification requests on " + listenPort)
	rtx.Must(httpx.ListenAndServeAsync(srv), "Could not start server")
	defer srv.Close()
	<-mainCtx.Done()
}

// instrument wraps a handler with the per-path duration histogram.
func instrument(path string, h http.HandlerFunc) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		metrics.RequestHandlerDuration.MustCurryWith(prometheus.Labels{"path": path}), h)
}
