package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shiftdrop/backend/config"
	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
	"shiftdrop/backend/pkg/clock"
	"shiftdrop/backend/pkg/token"
)

// notifyFanOut 班次通知扇出
// 通知集合 = 池内 active 零工中可用时段覆盖班次窗口者，
// 排除已持有有效认领的零工与 excludeCasualID（释放场景下空出名额的零工）。
// 每人复用现存有效 pending 令牌或新发令牌，并入队一条出站短信；
// 全部写入在单事务内完成。幂等：同一零工+班次不会产生第二个有效令牌
func notifyFanOut(
	ctx context.Context,
	repo *repository.Repository,
	cfg *config.Config,
	clk clock.Clock,
	shift *model.Shift,
	excludeCasualID string,
) (notified, reused int, err error) {
	casuals, err := repo.Casual.ListActiveByPool(ctx, shift.PoolID)
	if err != nil {
		return 0, 0, err
	}

	day, from, to := shiftWindow(shift)
	now := clk.Now()

	err = repo.WithTx(ctx, func(txRepo *repository.Repository) error {
		for i := range casuals {
			casual := &casuals[i]
			if casual.CasualID == excludeCasualID {
				continue
			}
			if shift.ActiveClaimBy(casual.CasualID) != nil {
				continue
			}
			if !covers(casual.Availability, day, from, to) {
				continue
			}

			notification, err := txRepo.Notification.GetPendingByShiftAndCasual(ctx, shift.ShiftID, casual.CasualID)
			switch {
			case err == nil && notification.IsValid(now):
				reused++
			case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
				// 无令牌或令牌已失效：新发一个
				claimToken, err := token.New()
				if err != nil {
					return err
				}
				notification = &model.ShiftNotification{
					ShiftID:     shift.ShiftID,
					CasualID:    casual.CasualID,
					ClaimToken:  claimToken,
					TokenStatus: model.TokenPending,
					CreatedAt:   now,
				}
				if err := txRepo.Notification.Create(ctx, notification); err != nil {
					return err
				}
			default:
				return err
			}

			if err := txRepo.Outbox.Enqueue(ctx, claimMessage(cfg, shift, casual, notification.ClaimToken)); err != nil {
				return err
			}
			notified++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return notified, reused, nil
}

// shiftWindow 班次窗口折算为（星期、起、止）
// 跨天班次按首日 23:59 截断判定覆盖（可用时段模型为单日窗口）
func shiftWindow(shift *model.Shift) (day int, from, to string) {
	day = int(shift.StartsAt.Weekday())
	from = shift.StartsAt.Format("15:04")
	if shift.StartsAt.Year() == shift.EndsAt.Year() && shift.StartsAt.YearDay() == shift.EndsAt.YearDay() {
		to = shift.EndsAt.Format("15:04")
	} else {
		to = "23:59"
	}
	return day, from, to
}

func covers(slots []model.AvailabilitySlot, day int, from, to string) bool {
	for i := range slots {
		if slots[i].Covers(day, from, to) {
			return true
		}
	}
	return false
}

func claimMessage(cfg *config.Config, shift *model.Shift, casual *model.Casual, claimToken string) *model.OutboxMessage {
	return &model.OutboxMessage{
		Channel:          model.OutboxChannelSMS,
		RecipientContact: casual.PhoneNumber,
		BodyText: fmt.Sprintf("新班次可认领：%s 至 %s，先到先得",
			shift.StartsAt.Format("01-02 15:04"), shift.EndsAt.Format("15:04")),
		ActionURL: fmt.Sprintf("%s/c/%s", cfg.Server.BaseURL, claimToken),
		Status:    model.OutboxPending,
	}
}
