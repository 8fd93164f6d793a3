package models

import "time"

// ReportTarget константы типов проверяемого контента
const (
	TargetProfile = "PROFILE"
	TargetMessage = "MESSAGE"
	TargetMission = "MISSION"
	TargetOther   = "OTHER"
)

// Classification константы категорий, которые возвращает AI модерация
const (
	ClassificationNormalContent        = "NORMAL_CONTENT"
	ClassificationToxicLanguage        = "TOXIC_LANGUAGE"
	ClassificationInappropriateContent = "INAPPROPRIATE_CONTENT"
	ClassificationSpamLike             = "SPAM_LIKE"
	ClassificationFraudSuspected       = "FRAUD_SUSPECTED"
	ClassificationMisleadingInfo       = "MISLEADING_INFORMATION"
	ClassificationOther                = "OTHER"
)

// ReportState константы статусов проверки AI отчёта
const (
	ReportStatePending  = "PENDING"
	ReportStateApproved = "APPROVED"
	ReportStateRejected = "REJECTED"
)

// ValidTargets список валидных типов контента
var ValidTargets = map[string]struct{}{
	TargetProfile: {},
	TargetMessage: {},
	TargetMission: {},
	TargetOther:   {},
}

// ValidClassifications список валидных категорий
var ValidClassifications = map[string]struct{}{
	ClassificationNormalContent:        {},
	ClassificationToxicLanguage:        {},
	ClassificationInappropriateContent: {},
	ClassificationSpamLike:             {},
	ClassificationFraudSuspected:       {},
	ClassificationMisleadingInfo:       {},
	ClassificationOther:                {},
}

// ValidReportStates список валидных статусов отчёта
var ValidReportStates = map[string]struct{}{
	ReportStatePending:  {},
	ReportStateApproved: {},
	ReportStateRejected: {},
}

// AIReport — запись, которую создаёт автоматическая модерация,
// когда классификатор помечает контент. Ожидает решения администратора.
type AIReport struct {
	ID              int64     `db:"id_report" json:"id_report"`
	TargetType      string    `db:"target_type" json:"target_type"`
	TargetID        int64     `db:"target_id" json:"target_id"`
	ReportedUserID  int64     `db:"reported_user_id" json:"reported_user_id"`
	Classification  string    `db:"classification" json:"classification"`
	ConfidenceScore *float64  `db:"confidence_score" json:"confidence_score,omitempty"`
	ModelVersion    string    `db:"model_version" json:"model_version"`
	State           string    `db:"state" json:"state"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
