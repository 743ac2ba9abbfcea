package seplos

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"bms-gateway/internal/usecase"
)

// Session 代表一个电池组会话
type Session struct {
	Pack           string // 电池组总线地址 (十六进制)
	Conn           usecase.Conn
	LastActiveTime time.Time // 最后活跃时间
	FirstSeenTime  time.Time // 首帧时间
}

// SessionManager 管理电池组会话
type SessionManager struct {
	sessions sync.Map // map[string]*Session (Pack -> Session)
	logger   *zap.Logger
}

// NewSessionManager 创建一个新的会话管理器
func NewSessionManager(logger *zap.Logger) *SessionManager {
	return &SessionManager{
		logger: logger,
	}
}

// Add 为指定电池组创建或更新会话
func (sm *SessionManager) Add(pack string, conn usecase.Conn) {
	session := &Session{
		Pack:           pack,
		Conn:           conn,
		LastActiveTime: time.Now(),
		FirstSeenTime:  time.Now(),
	}
	sm.sessions.Store(pack, session)
	sm.logger.Info("[SessionManager] Session Added",
		zap.String("pack", pack), zap.String("remote_addr", conn.RemoteAddr()))
}

// Remove 删除会话 (不关闭连接: 同一桥接器连接可能承载多个电池组)
func (sm *SessionManager) Remove(pack string) {
	if val, ok := sm.sessions.LoadAndDelete(pack); ok {
		sess := val.(*Session)
		sm.logger.Info("[SessionManager] Session Removed", zap.String("pack", sess.Pack))
	}
}

// Get 获取会话
func (sm *SessionManager) Get(pack string) (*Session, bool) {
	val, ok := sm.sessions.Load(pack)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// UpdateLastActive 更新会话的活跃时间
func (sm *SessionManager) UpdateLastActive(pack string) {
	if val, ok := sm.sessions.Load(pack); ok {
		sess := val.(*Session)
		sess.LastActiveTime = time.Now()
	}
}

// CheckHeartbeat 检查超时的会话并移除。
// 桥接器断连不一定产生 TCP 事件, 依赖定时器兜底清理。
func (sm *SessionManager) CheckHeartbeat(timeout time.Duration) {
	now := time.Now()
	sm.sessions.Range(func(key, value interface{}) bool {
		sess := value.(*Session)
		if now.Sub(sess.LastActiveTime) > timeout {
			sm.logger.Info("[SessionManager] Session Timeout",
				zap.String("pack", sess.Pack),
				zap.Duration("inactive_duration", now.Sub(sess.LastActiveTime)))
			sm.Remove(sess.Pack)
		}
		return true // 继续遍历
	})
}
