package dto

// TriggerRequest run触发请求
type TriggerRequest struct {
	TestMode bool `json:"test_mode"`
}
