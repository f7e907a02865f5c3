// internal/app/system/limits/limits.go
package limits

// Request body size limits for form posts.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxTicketFormSize bounds ticket create and edit submissions, which
	// carry the free-text description.
	MaxTicketFormSize = 256 << 10 // 256 KB

	// MaxCommentFormSize bounds a single ticket comment.
	MaxCommentFormSize = 64 << 10 // 64 KB

	// MaxStatusFormSize bounds the status form, which carries one field.
	MaxStatusFormSize = 4 << 10 // 4 KB

	// MaxFormSize is the default for the remaining admin forms
	// (suppliers, maintenance records).
	MaxFormSize = 128 << 10 // 128 KB
)
