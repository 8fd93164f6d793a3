package models

// Candidate — единица работы для пакетной проверки: контент, выбранный
// для сканирования, но ещё не ставший отчётом. Нигде не сохраняется.
type Candidate struct {
	TargetType string
	TargetID   int64
	AuthorID   int64
	Text       string
}

// ProfileRow — строка выборки кандидатов-профилей. Профиль пользователя
// бывает волонтёрским или ассоциативным, текст собирается по-разному.
type ProfileRow struct {
	UserID         int64   `db:"id_user"`
	Bio            *string `db:"bio"`
	Skills         *string `db:"skills"`
	AssocName      *string `db:"assoc_name"`
	AssocDesc      *string `db:"assoc_description"`
	HasVolunteer   bool    `db:"has_volunteer"`
	HasAssociation bool    `db:"has_association"`
}

// MissionRow — строка выборки кандидатов-миссий вместе с владельцем
// (пользователем ассоциации, которой принадлежит миссия).
type MissionRow struct {
	MissionID   int64  `db:"id_mission"`
	Name        string `db:"name"`
	Description string `db:"description"`
	OwnerUserID int64  `db:"owner_user_id"`
}
