package lnurl

// TagWithdrawRequest is the LNURL-withdraw discovery tag.
const TagWithdrawRequest = "withdrawRequest"

// WithdrawRequest is the first-step discovery payload returned to the
// calling wallet.
type WithdrawRequest struct {
	Tag                string `json:"tag"`
	Callback           string `json:"callback"`
	K1                 string `json:"k1"`
	DefaultDescription string `json:"defaultDescription"`
	MinWithdrawable    int64  `json:"minWithdrawable"`
	MaxWithdrawable    int64  `json:"maxWithdrawable"`
}

// Response is the uniform LNURL status envelope. Every reply is HTTP 200;
// only the Status field distinguishes success from failure.
type Response struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func OK() Response { return Response{Status: "OK"} }

func Errorf(reason string) Response { return Response{Status: "ERROR", Reason: reason} }
