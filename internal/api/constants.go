package api

// Route prefixes.
const (
	apiPrefix  = "/api"
	authPrefix = apiPrefix + "/auth/"
)

// bearerSecurity marks an operation as requiring a token in the OpenAPI document.
var bearerSecurity = []map[string][]string{{"bearer": {}}}
