package types

// Error codes are <DOMAIN>_<HTTP status>.
const (
	CodeActionBadRequest = "ACTION_400"
	CodeActionNotFound   = "ACTION_404"
	CodeActionInvalid    = "ACTION_422"
	CodeActionInternal   = "ACTION_500"
	CodeActionDevice     = "ACTION_502"
	CodeActionBusy       = "ACTION_503"

	CodeArtifactBadRequest = "ARTIFACT_400"
	CodeArtifactNotFound   = "ARTIFACT_404"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
