package ws

import (
	"github.com/ignatzorin/moderation-backend/internal/logger"
	"github.com/ignatzorin/moderation-backend/internal/models"
)

// ReportFeed публикует созданные AI отчёты в хаб.
type ReportFeed struct {
	hub *Hub
}

// NewReportFeed создаёт адаптер поверх хаба.
func NewReportFeed(hub *Hub) *ReportFeed {
	return &ReportFeed{hub: hub}
}

// PublishReport рассылает событие о новом отчёте всем подключённым админам.
func (f *ReportFeed) PublishReport(report *models.AIReport) {
	if f == nil || f.hub == nil || report == nil {
		return
	}
	if err := f.hub.Broadcast(EventReportCreated, report); err != nil && logger.Log != nil {
		logger.Log.Errorf("Не удалось отправить событие о новом AI отчёте: %v", err)
	}
}
