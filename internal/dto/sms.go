package dto

// SMSSendRequest asks for a verification code.
type SMSSendRequest struct {
	Phone string `json:"phone"`
}

// SMSVerifyRequest confirms a verification code.
type SMSVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// SMSResponse reports a verification step outcome.
type SMSResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
