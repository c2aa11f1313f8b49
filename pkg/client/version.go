package client

// SDKVersion is the version of this client library.
const SDKVersion = "1.4.0"

// DefaultAPIVersion is the graph API version used when none is configured.
const DefaultAPIVersion = "v21.0"

// DefaultBaseURL is the graph API host.
const DefaultBaseURL = "https://graph.facebook.com"

// Version returns the SDK version.
func Version() string {
	return SDKVersion
}

// DefaultUserAgent is sent when Config.UserAgent is empty.
func DefaultUserAgent() string {
	return "fbbizsdk-go-v" + SDKVersion
}
