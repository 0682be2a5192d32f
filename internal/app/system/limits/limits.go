// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody bounds ordinary API request bodies.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxShareSelection bounds a share export, which carries every selected
	// room and item id.
	MaxShareSelection = 1 << 20 // 1 MB
)
