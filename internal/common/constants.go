package common

// Environment variable keys
const (
	EnvConfigFile    = "CONFIG_FILE"
	EnvPredictURL    = "PREDICT_URL"
	EnvServiceURL    = "SERVICE_URL"
	EnvRelayPort     = "RELAY_PORT"
	EnvRelayUpstream = "RELAY_UPSTREAM"
	EnvLivePort      = "LIVE_PORT"
	EnvRESTTimeout   = "REST_TIMEOUT"
	EnvDataPath      = "DATA_PATH"
	EnvOutputDir     = "OUTPUT_DIR"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogFormat     = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultServiceURL    = "http://localhost:5000"
	DefaultPredictURL    = "http://localhost:3001/predict"
	DefaultRelayUpstream = "http://localhost:5000/predict"
	DefaultRelayPort     = 3001
	DefaultLivePort      = 8080
	DefaultRESTTimeout   = "10s"
	DefaultOutputDir     = "charts"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Prediction service paths
const (
	PathPredict         = "/predict"
	PathPredictAllTrees = "/predict-all-trees"
	PathTreeData        = "/tree-data"
	PathChartData       = "/chart-data"
)

// Relay error messages returned to callers
const (
	ErrMsgNoUpstreamResponse = "No response from prediction service. Is it running?"
	ErrMsgUpstreamSetup      = "Error setting up request to prediction service."
	ErrMsgInvalidJSON        = "Request body must be a JSON object."
	ErrMsgUnreachable        = "Could not reach the prediction service."
)

// Validation constants
const (
	MinPort        = 1024
	MaxPort        = 65535
	MinRESTTimeout = "100ms"
	MaxRESTTimeout = "2m"
)

// Header carrying the per-request correlation id through the relay.
const HeaderRequestID = "X-Request-ID"
