package utils

// ResponseData is the JSON envelope returned by every REST handler.
// Status is only used to pick the HTTP status code.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with err so the Recovery middleware can render it.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
