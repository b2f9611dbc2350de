package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrGameStateLock         = errors.New("game state locked")
	ErrClaimLock             = errors.New("legacy claim locked")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrTaskAlreadyCompleted  = errors.New("task already completed")
	ErrInvalidCount          = errors.New("count must be between 1 and 100")
	ErrUnknownProvider       = errors.New("unknown identity provider")
	ErrProviderDisabled      = errors.New("identity provider not configured")
	ErrInvalidIdentity       = errors.New("identity token rejected")
	ErrSubTaskNotFound       = errors.New("sub-task not found")
)

const (
	CONFIG_CRONJOB_TIME_CORRUPTION         = "CRONJOB_TIME_CORRUPTION"
	CONFIG_CRONJOB_TIME_PURGE              = "CRONJOB_TIME_PURGE"
	CONFIG_CLEANSING_COST_GLORY            = "CLEANSING_COST_GLORY"
	CONFIG_REQUISITION_COST_GLORY          = "REQUISITION_COST_GLORY"
	CONFIG_PENITENT_NOTIFY_COOLDOWN_HOURS  = "PENITENT_NOTIFY_COOLDOWN_HOURS"
	CONFIG_PENITENT_NOTIFY_TEXT            = "PENITENT_NOTIFY_TEXT"
	DEFAULT_CRONJOB_TIME_CORRUPTION        = "@every 1m"
	DEFAULT_CRONJOB_TIME_PURGE             = "0 4 * * *"
	DEFAULT_CLEANSING_COST_GLORY           = 50
	DEFAULT_REQUISITION_COST_GLORY         = 25
	DEFAULT_PENITENT_NOTIFY_COOLDOWN_HOURS = 6
	DEFAULT_PENITENT_NOTIFY_TEXT           = "⚠️ <b>Corruption has reached %.0f.</b> Your crusade is in Penitent mode until you cleanse below 80."

	MAX_RECRUIT_COUNT                = 100
	DEFAULT_LOG_LIST_LIMIT           = 100
	MAX_LOG_LIST_LIMIT               = 500
	TOKEN_TTL                        = 30 * 24 * time.Hour
	HTTP_TIMEOUT                     = 10 * time.Second
	LOGIN_RATE_LIMIT_PER_MINUTE      = 20
	LOG_APPEND_RATE_LIMIT_PER_MINUTE = 60

	CACHE_TTL_1_MIN  = 1 * time.Minute
	CACHE_TTL_5_MINS = 5 * time.Minute

	GOOGLE_TOKENINFO_URL = "https://oauth2.googleapis.com/tokeninfo"
	LINE_API_BASE_URL    = "https://api.line.me/oauth2/v2.1"
)

func LockKeyGameState(userID string) string {
	return fmt.Sprintf("lock:game-state:%s", userID)
}

func LockKeyLegacyClaim() string {
	return "lock:legacy-claim"
}

func LockKeyCorruptionTick() string {
	return "lock:corruption-tick"
}

// db
func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func DBKeyGameState(userID string) string {
	return fmt.Sprintf("game_state:%s", userID)
}

func DBKeyTasks(userID string) string {
	return fmt.Sprintf("tasks:%s", userID)
}

func RateKeyLogin(ip string) string {
	return fmt.Sprintf("rate:login:%s", ip)
}

func RateKeyLogAppend(userID string) string {
	return fmt.Sprintf("rate:log-append:%s", userID)
}
