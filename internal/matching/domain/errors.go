package domain

// ValidationError is the failure carried by every constructor in this package.
// It holds only the user-facing message; callers compare by message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(message string) error {
	return &ValidationError{Message: message}
}

const (
	msgTextEmpty              = "상담 요청 내용은 비어있을 수 없습니다"
	msgTextTooShort           = "상담 요청 내용은 최소 10자 이상이어야 합니다"
	msgTextTooLong            = "상담 요청 내용은 최대 5000자까지 입력 가능합니다"
	msgInstitutionIDEmpty     = "기관 ID는 비어있을 수 없습니다"
	msgScoreOutOfRange        = "추천 점수는 0.0에서 1.0 사이여야 합니다"
	msgReasonEmpty            = "추천 사유는 비어있을 수 없습니다"
	msgReasonTooLong          = "추천 사유는 최대 1000자까지 입력 가능합니다"
	msgTooFewRecommendations  = "추천 결과는 최소 1개 이상이어야 합니다"
	msgTooManyRecommendations = "추천 결과는 최대 10개까지만 가능합니다"
)
