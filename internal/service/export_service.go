package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoShifts     = errors.New("该时段内没有班次")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 认领明细导出为 Excel (.xlsx)，按班次一行，附认领零工名单
//   - 班次日历导出为 iCalendar (RFC 5545)，供经理订阅到日历客户端
//   - Excel 以 bytes.Buffer 返回、ICS 以字符串返回，
//     由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportClaims 导出池内班次认领明细为 Excel
	ExportClaims(ctx context.Context, poolID string, from, to *time.Time, callerID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出池内班次为 ICS 日历
	ExportCalendar(ctx context.Context, poolID string, callerID string) (string, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportClaims — 导出认领明细为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：池名 — 认领明细
//   - 表头: | 日期 | 开始 | 结束 | 需求 | 剩余 | 状态 | 已认领零工 |
//   - 已认领零工列为逗号分隔的姓名（仅 claimed 状态）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportClaims(ctx context.Context, poolID string, from, to *time.Time, callerID string) (*bytes.Buffer, string, error) {
	pool, err := s.authorizePool(ctx, poolID, callerID)
	if err != nil {
		return nil, "", err
	}

	shifts, err := s.repo.Shift.ListByPool(ctx, poolID, from, to)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, "", err
	}
	if len(shifts) == 0 {
		return nil, "", ErrExportNoShifts
	}

	// 零工姓名索引
	casuals, _, err := s.repo.Casual.ListByPool(ctx, poolID, 0, 0)
	if err != nil {
		s.logger.Error("查询零工失败", zap.Error(err))
		return nil, "", err
	}
	nameByID := make(map[string]string, len(casuals))
	for _, c := range casuals {
		nameByID[c.CasualID] = c.Name
	}
	// 已移除零工不在列表中，但历史认领仍需显示姓名
	for i := range shifts {
		for j := range shifts[i].Claims {
			id := shifts[i].Claims[j].CasualID
			if _, ok := nameByID[id]; ok {
				continue
			}
			if c, err := s.repo.Casual.GetByID(ctx, id); err == nil {
				nameByID[id] = c.Name
			}
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "认领明细"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 8)
	f.SetColWidth(sheetName, "D", "E", 6)
	f.SetColWidth(sheetName, "F", "F", 8)
	f.SetColWidth(sheetName, "G", "G", 36)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 认领明细", pool.Name))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	headers := []string{"日期", "开始", "结束", "需求", "剩余", "状态", "已认领零工"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}

	// 数据行
	row = 3
	for i := range shifts {
		sh := &shifts[i]
		f.SetCellValue(sheetName, cell("A", row), sh.StartsAt.Format("2006-01-02"))
		f.SetCellValue(sheetName, cell("B", row), sh.StartsAt.Format("15:04"))
		f.SetCellValue(sheetName, cell("C", row), sh.EndsAt.Format("15:04"))
		f.SetCellValue(sheetName, cell("D", row), sh.SpotsNeeded)
		f.SetCellValue(sheetName, cell("E", row), sh.SpotsRemaining)
		f.SetCellValue(sheetName, cell("F", row), shiftStatusText(sh.Status))
		f.SetCellValue(sheetName, cell("G", row), claimantNames(sh, nameByID))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("认领明细_%s.xlsx", pool.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 导出班次为 ICS 日历
// ═══════════════════════════════════════════════════════════
//
// 每个班次一个 VEVENT：
//   - UID 取 shift_id，重复导出时日历客户端按 UID 去重更新
//   - 取消的班次以 STATUS:CANCELLED 标记而非省略，便于客户端同步删除

func (s *exportService) ExportCalendar(ctx context.Context, poolID string, callerID string) (string, string, error) {
	pool, err := s.authorizePool(ctx, poolID, callerID)
	if err != nil {
		return "", "", err
	}

	shifts, err := s.repo.Shift.ListByPool(ctx, poolID, nil, nil)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return "", "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ShiftDrop//Shift Calendar//CN")

	for i := range shifts {
		sh := &shifts[i]
		evt := cal.AddEvent(sh.ShiftID)
		evt.SetDtStampTime(sh.UpdatedAt)
		evt.SetStartAt(sh.StartsAt)
		evt.SetEndAt(sh.EndsAt)

		claimed := sh.SpotsNeeded - sh.SpotsRemaining
		evt.SetSummary(fmt.Sprintf("%s 班次（%d/%d 已认领）", pool.Name, claimed, sh.SpotsNeeded))
		evt.SetDescription(fmt.Sprintf("状态：%s", shiftStatusText(sh.Status)))

		if sh.Status == model.ShiftCancelled {
			evt.SetStatus(ics.ObjectStatusCancelled)
		} else {
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	filename := fmt.Sprintf("班次日历_%s.ics", pool.Name)
	return cal.Serialize(), filename, nil
}

// ── 内部辅助方法 ──

func (s *exportService) authorizePool(ctx context.Context, poolID, callerID string) (*model.Pool, error) {
	pool, err := s.repo.Pool.GetAuthorized(ctx, poolID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		s.logger.Error("查询用工池失败", zap.String("pool_id", poolID), zap.Error(err))
		return nil, err
	}
	return pool, nil
}

// claimantNames 有效认领零工姓名列表（逗号分隔）
func claimantNames(shift *model.Shift, nameByID map[string]string) string {
	var names []string
	for i := range shift.Claims {
		c := &shift.Claims[i]
		if c.Status != model.ClaimClaimed {
			continue
		}
		if name, ok := nameByID[c.CasualID]; ok {
			names = append(names, name)
		} else {
			names = append(names, c.CasualID)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, "、")
}

func shiftStatusText(status string) string {
	switch status {
	case model.ShiftOpen:
		return "招募中"
	case model.ShiftFilled:
		return "已满员"
	case model.ShiftCancelled:
		return "已取消"
	}
	return status
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
