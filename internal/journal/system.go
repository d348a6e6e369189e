package journal

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"event-arena/internal/arena"
	"event-arena/internal/config"

	"github.com/google/uuid"
)

// maxRecordsPerSec bounds journal throughput so a pathological event storm
// degrades to dropped journal entries instead of unbounded memory.
const maxRecordsPerSec = 20_000

// RecordedTypes is the explicit allowlist the journal subscribes to. The
// high-frequency tick events are deliberately absent.
var RecordedTypes = []string{
	arena.EventCmdJoin,
	arena.EventCmdLeave,
	arena.EventPlayerJoin,
	arena.EventPlayerMove,
	arena.EventPlayerAimed,
	arena.EventPlayerDie,
	arena.EventPlayerDead,
	arena.EventPlayerKill,
	arena.EventPlayerLeave,
	arena.EventProjectileSpawned,
	arena.EventProjectileMoved,
	arena.EventProjectileDespawned,
	arena.EventProjectileBounced,
	arena.EventDamageApplied,
	arena.EventExplosionSpawned,
	arena.EventKnockbackApplied,
	arena.EventDashStarted,
	arena.EventDashEnded,
	arena.EventPickupSpawned,
	arena.EventPickupCollected,
	arena.EventBuffApplied,
	arena.EventBuffExpired,
	arena.EventMatchCreated,
	arena.EventMatchStarted,
	arena.EventMatchEnded,
	arena.EventScoreUpdate,
	arena.EventFeedEntry,
	arena.EventStreakChanged,
}

// saveRequest hands an immutable snapshot of a journal to the writer.
type saveRequest struct {
	doc  Document
	jrnl *Journal // MarkSaved target
	n    int      // Snapshot length
}

// System is the journal subsystem: it records allowlisted bus events into
// the current journal on the simulation loop, rotates journals on match
// boundaries and size, and persists them through a background writer so the
// loop never blocks on disk.
type System struct {
	engine  *arena.Engine
	cfg     config.JournalConfig
	storage *Storage

	current *Journal // Sim-loop owned
	limiter *rate.Limiter

	saveChan chan saveRequest
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	recorded uint64 // atomic
	dropped  uint64 // atomic
	saves    uint64 // atomic
}

// NewSystem creates the journal system and its storage layout. The system
// is inert until Start.
func NewSystem(engine *arena.Engine, cfg config.JournalConfig) (*System, error) {
	storage, err := NewStorage(cfg.BaseDir, cfg.Compress, cfg.StreamThreshold)
	if err != nil {
		return nil, fmt.Errorf("journal storage: %w", err)
	}

	s := &System{
		engine:   engine,
		cfg:      cfg,
		storage:  storage,
		limiter:  rate.NewLimiter(maxRecordsPerSec, maxRecordsPerSec/10),
		saveChan: make(chan saveRequest, 8),
		stopChan: make(chan struct{}),
	}
	return s, nil
}

// Start subscribes to the bus, opens the first session journal and launches
// the background writer and auto-save timer.
func (s *System) Start() {
	if !s.cfg.Enabled {
		log.Println("📓 journal disabled")
		return
	}

	// Startup cleanup keeps the newest KeepJournals.
	if s.cfg.KeepJournals > 0 {
		if n := s.storage.Cleanup(CleanupOptions{MaxCount: s.cfg.KeepJournals}, s.engine.Now()); n > 0 {
			log.Printf("📓 journal cleanup removed %d old journal(s)", n)
		}
	}

	s.engine.Do(func() {
		s.current = s.newSessionJournal()
		s.engine.Bus().OnEach(RecordedTypes, s.onEvent)
	})

	s.wg.Add(2)
	go s.writerLoop()
	go s.autoSaveLoop()

	log.Printf("📓 journal recording to %s (compress=%v)", s.cfg.BaseDir, s.cfg.Compress)
}

// Stop records nothing further, saves the current journal synchronously and
// shuts the writer down. Called on SIGINT/SIGTERM.
func (s *System) Stop() {
	if !s.cfg.Enabled {
		return
	}
	s.stopOnce.Do(func() {
		done := make(chan struct{})
		s.engine.Do(func() {
			s.saveCurrent()
			s.current = nil
			close(done)
		})
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Println("⚠️ journal final save request timed out")
		}

		close(s.stopChan)
		s.wg.Wait()
		log.Println("📓 journal stopped")
	})
}

// onEvent runs on the simulation loop for every allowlisted event.
func (s *System) onEvent(e arena.Event) {
	if s.current == nil {
		return
	}

	// Rotation on match boundaries. match:created closes whatever scope
	// was open; match:ended is recorded into the match journal first, then
	// a session journal bridges the gap to the next match.
	switch ev := e.(type) {
	case arena.MatchCreatedEvent:
		s.saveCurrent()
		s.current = s.newMatchJournal(ev.MatchID)
	case arena.MatchEndedEvent:
		s.record(e)
		s.saveCurrent()
		s.current = s.newSessionJournal()
		return
	}

	s.record(e)

	if s.current.Len() >= s.cfg.MaxJournalSize {
		// Size rotation keeps the match scope.
		matchID := s.current.MatchID
		s.saveCurrent()
		if matchID != "" {
			s.current = s.newMatchJournal(matchID)
		} else {
			s.current = s.newSessionJournal()
		}
		return
	}

	if s.current.UnsavedCount() >= s.cfg.MaxBufferSize {
		// Advisory flush in the hot path; the writer may already be busy.
		s.requestSave(false)
	}
}

func (s *System) record(e arena.Event) {
	if !s.limiter.Allow() {
		atomic.AddUint64(&s.dropped, 1)
		return
	}
	if _, err := s.current.Record(e, s.engine.Now()); err != nil {
		log.Printf("⚠️ journal record failed: %v", err)
		return
	}
	atomic.AddUint64(&s.recorded, 1)

	if s.cfg.Debug {
		log.Printf("📓 journal %s: %s (#%d)", s.current.ID, e.Type(), s.current.Len())
	}
}

func (s *System) newSessionJournal() *Journal {
	now := s.engine.Now()
	iso := strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-")
	id := fmt.Sprintf("session_%s_%s", iso, uuid.NewString()[:8])
	return New(id, "", now)
}

func (s *System) newMatchJournal(matchID string) *Journal {
	now := s.engine.Now()
	iso := strings.ReplaceAll(now.UTC().Format(time.RFC3339), ":", "-")
	return New(fmt.Sprintf("match_%s_%s", matchID, iso), matchID, now)
}

// saveCurrent snapshots the current journal for the writer. Runs on the
// simulation loop; the entry slice prefix is immutable because appends only
// extend it.
func (s *System) saveCurrent() {
	s.requestSave(true)
}

func (s *System) requestSave(detach bool) {
	j := s.current
	if j == nil || j.Len() == 0 {
		return
	}
	n := j.Len()
	if !detach && j.UnsavedCount() == 0 {
		return
	}

	// eventCount is frozen at snapshot time so the file agrees with the
	// entries it actually contains.
	doc := Document{
		Metadata: j.Metadata(n, s.engine.Now()),
		Entries:  j.Entries[:n:n],
	}

	req := saveRequest{doc: doc, jrnl: j, n: n}
	select {
	case s.saveChan <- req:
	default:
		log.Printf("⚠️ journal writer busy, deferring save of %s", j.ID)
	}
}

// writerLoop persists snapshots off the simulation loop.
func (s *System) writerLoop() {
	defer s.wg.Done()
	for {
		select {
		case req := <-s.saveChan:
			s.write(req)
		case <-s.stopChan:
			for {
				select {
				case req := <-s.saveChan:
					s.write(req)
				default:
					return
				}
			}
		}
	}
}

func (s *System) write(req saveRequest) {
	path, err := s.storage.Save(req.doc)
	if err != nil {
		// The in-memory journal is intact; the next auto-save retries.
		log.Printf("⚠️ journal save failed for %s: %v", req.doc.Metadata.ID, err)
		return
	}
	atomic.AddUint64(&s.saves, 1)

	if req.jrnl != nil {
		jrnl, n := req.jrnl, req.n
		s.engine.Do(func() { jrnl.MarkSaved(n) })
	}
	if s.cfg.Debug {
		log.Printf("📓 saved %s (%d events) -> %s", req.doc.Metadata.ID, req.doc.Metadata.EventCount, path)
	}
}

// autoSaveLoop periodically flushes unsaved entries.
func (s *System) autoSaveLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.AutoSaveEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.engine.Do(func() {
				if s.current != nil && s.current.UnsavedCount() > 0 {
					s.requestSave(false)
				}
			})
		case <-s.stopChan:
			return
		}
	}
}

// Storage exposes the underlying storage for inspection endpoints.
func (s *System) Storage() *Storage {
	return s.storage
}

// Stats returns counters for monitoring.
func (s *System) Stats() map[string]interface{} {
	return map[string]interface{}{
		"recorded": atomic.LoadUint64(&s.recorded),
		"dropped":  atomic.LoadUint64(&s.dropped),
		"saves":    atomic.LoadUint64(&s.saves),
		"enabled":  s.cfg.Enabled,
	}
}
