package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

type Config struct {
	APIPort  string
	LogLevel string

	GroqAPIKey string
	GroqURL    string
	GroqModel  string

	OllamaURL        string
	OllamaEmbedModel string

	// Persisted layout for the single logical current corpus.
	CorpusDir            string
	DenseIndexPath       string
	LexicalIndexPath     string
	SignaturePath        string
	ReferencesPath       string
	FallbackRecordPath   string
	AcquisitionStatePath string

	CountriesCSVPath    string
	HSCatalogPath       string
	AgreementPolicyPath string

	ChunkSize    int
	ChunkOverlap int

	RetrieverK       int
	HybridCandidates int
	DenseWeight      float64
	FusionStrategy   string

	ExtractTimeout   time.Duration
	AcquireTimeout   time.Duration
	RefreshTimeout   time.Duration
	SynthesisTimeout time.Duration

	CompareURL      string
	TariffAPIURL    string
	DownloadRPS     float64
	AcquireHeadless bool

	NATSURL     string
	NATSSubject string

	PostgresDSN string

	WorkerMetricsPort string
	HTTPRateLimitRPS  float64
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		GroqAPIKey: mustEnv("GROQ_API_KEY", ""),
		GroqURL:    mustEnv("GROQ_URL", "https://api.groq.com/openai"),
		GroqModel:  mustEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		CorpusDir:            mustEnv("CORPUS_DIR", "./data/pdfs"),
		DenseIndexPath:       mustEnv("DENSE_INDEX_PATH", "./data/index/dense_index.json"),
		LexicalIndexPath:     mustEnv("LEXICAL_INDEX_PATH", "./data/index/lexical_index.json"),
		SignaturePath:        mustEnv("SIGNATURE_PATH", "./data/index/last_corpus_signature.txt"),
		ReferencesPath:       mustEnv("REFERENCES_PATH", "./data/references.json"),
		FallbackRecordPath:   mustEnv("FALLBACK_RECORD_PATH", "./data/fallback_tariff.json"),
		AcquisitionStatePath: mustEnv("ACQUISITION_STATE_PATH", "./data/last_acquisition.txt"),

		CountriesCSVPath:    mustEnv("COUNTRIES_CSV_PATH", "./data/reference/iso_country_codes.csv"),
		HSCatalogPath:       mustEnv("HS_CATALOG_PATH", "./data/reference/hs_code_descriptions.json"),
		AgreementPolicyPath: mustEnv("AGREEMENT_POLICY_PATH", "./data/reference/agreement_policy.yaml"),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 150),

		RetrieverK:       mustEnvInt("RETRIEVER_K", 6),
		HybridCandidates: mustEnvInt("HYBRID_CANDIDATES", 30),
		DenseWeight:      mustEnvFloat("RETRIEVAL_DENSE_WEIGHT", 0.6),
		FusionStrategy:   mustEnv("RETRIEVAL_FUSION_STRATEGY", "weighted"),

		ExtractTimeout:   mustEnvDuration("EXTRACT_TIMEOUT", 30*time.Second),
		AcquireTimeout:   mustEnvDuration("ACQUIRE_TIMEOUT", 3*time.Minute),
		RefreshTimeout:   mustEnvDuration("REFRESH_TIMEOUT", 5*time.Minute),
		SynthesisTimeout: mustEnvDuration("SYNTHESIS_TIMEOUT", 60*time.Second),

		CompareURL:      mustEnv("COMPARE_URL", "https://findrulesoforigin.org/en/home/compare"),
		TariffAPIURL:    mustEnv("TARIFF_API_URL", "https://wits.worldbank.org/API/V1/SDMX/V21/datasource/TRN/reporter/%s/partner/%s/product/%s"),
		DownloadRPS:     mustEnvFloat("DOWNLOAD_RPS", 1.0),
		AcquireHeadless: mustEnvBool("ACQUIRE_HEADLESS", true),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "tradepilot.runs"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
		HTTPRateLimitRPS:  mustEnvFloat("HTTP_RATE_LIMIT_RPS", 5.0),
	}
}

// Validate checks startup-fatal requirements. Per-request failures never go
// through here.
func (c Config) Validate() error {
	if c.GroqAPIKey == "" {
		return domain.WrapError(domain.ErrConfiguration, "validate config", errors.New("GROQ_API_KEY is not set"))
	}
	if c.CorpusDir == "" {
		return domain.WrapError(domain.ErrConfiguration, "validate config", errors.New("CORPUS_DIR is not set"))
	}
	return nil
}

// ValidateWorker checks the requirements of the audit worker binary.
func (c Config) ValidateWorker() error {
	if c.PostgresDSN == "" {
		return domain.WrapError(domain.ErrConfiguration, "validate worker config", errors.New("POSTGRES_DSN is not set"))
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
