package models

import "time"

// Report — жалоба, поданная человеком на пользователя платформы.
// Этот сервис её не создаёт: для дедупликации достаточно факта существования.
type Report struct {
	ID             int64     `db:"id_report" json:"id_report"`
	ReporterID     int64     `db:"id_user_reporter" json:"id_user_reporter"`
	ReportedUserID int64     `db:"id_user_reported" json:"id_user_reported"`
	TargetType     string    `db:"target_type" json:"target_type"`
	Reason         string    `db:"reason" json:"reason"`
	State          string    `db:"state" json:"state"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
