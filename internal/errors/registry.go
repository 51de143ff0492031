package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Codec errors (N100-N199)
	"N101": {
		Category: CategoryCodec,
		Message:  "Decode failed",
	},
	"N102": {
		Category: CategoryCodec,
		Message:  "Encode failed",
	},
	"N103": {
		Category: CategoryCodec,
		Message:  "Codec required",
		Detail:   "Stores whose value type is not string or *string need an explicit codec.",
	},

	// Bridge errors (N200-N299)
	"N201": {
		Category: CategoryBridge,
		Message:  "Unsupported value shape",
		Detail:   "The store value is neither primitive nor structured (channels and functions cannot be bridged).",
	},

	// Storage errors (N300-N399)
	"N301": {
		Category: CategoryStorage,
		Message:  "Storage engine operation failed",
	},
	"N302": {
		Category: CategoryStorage,
		Message:  "Unknown storage engine",
	},

	// Config errors (N400-N499)
	"N401": {
		Category: CategoryConfig,
		Message:  "Config file not found",
	},
	"N402": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// Transport errors (N500-N599)
	"N501": {
		Category: CategoryTransport,
		Message:  "Relay connection failed",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
