package dto

// ── 支付模块 DTO ──

// CreatePaymentRequest 发起支付请求
type CreatePaymentRequest struct {
	AppointmentID string `json:"appointment_id" binding:"required,uuid"`
}

// PaymentURLResponse 支付跳转地址响应
type PaymentURLResponse struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
	Amount     string `json:"amount"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	Amount string `json:"amount" binding:"required"` // 十进制字符串，如 "150000"
}

// PaymentResponse 支付信息响应
type PaymentResponse struct {
	ID            string  `json:"id"`
	AppointmentID string  `json:"appointment_id"`
	PatientID     string  `json:"patient_id"`
	Amount        string  `json:"amount"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	PaidAt        *string `json:"paid_at,omitempty"`
	RefundedAt    *string `json:"refunded_at,omitempty"`
	RefundAmount  *string `json:"refund_amount,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// PaymentResultResponse 浏览器回跳结果
type PaymentResultResponse struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	ResponseCode string `json:"response_code"`
}

// IPNResponse 网关 IPN 应答，字段名由网关约定
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
