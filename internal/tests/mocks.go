package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ridecore/internal/domain"
	"ridecore/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	// No row locks in the mock; same as GetByID.
	return m.GetByID(ctx, id)
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	m.rides[ride.ID] = ride
	return nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK PRESENCE REPOSITORY
// ──────────────────────────────────────────────

// MockPresenceRepository is a mock implementation of PresenceRepository.
type MockPresenceRepository struct {
	mu       sync.RWMutex
	presence map[string]*domain.DriverPresence

	// Counters for verification
	UpsertCallCount    int32
	SetOnTripCallCount int32

	// Error injection
	UpsertError error
}

// NewMockPresenceRepository creates a new mock presence repository.
func NewMockPresenceRepository() *MockPresenceRepository {
	return &MockPresenceRepository{
		presence: make(map[string]*domain.DriverPresence),
	}
}

// AddPresence seeds a presence row.
func (m *MockPresenceRepository) AddPresence(p *domain.DriverPresence) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence[p.DriverID] = p
}

func (m *MockPresenceRepository) Get(ctx context.Context, driverID string) (*domain.DriverPresence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presence[driverID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPresenceRepository) GetForUpdate(ctx context.Context, driverID string) (*domain.DriverPresence, error) {
	return m.Get(ctx, driverID)
}

func (m *MockPresenceRepository) Upsert(ctx context.Context, presence *domain.DriverPresence) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *presence
	m.presence[presence.DriverID] = &copy
	return nil
}

func (m *MockPresenceRepository) SetOnTrip(ctx context.Context, driverID string, onTrip bool) error {
	atomic.AddInt32(&m.SetOnTripCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presence[driverID]
	if !ok {
		return repository.ErrNotFound
	}
	p.OnTrip = onTrip
	return nil
}

// GetPresence returns the presence row for test assertions.
func (m *MockPresenceRepository) GetPresence(driverID string) *domain.DriverPresence {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presence[driverID]
}

// ──────────────────────────────────────────────
// MOCK SUBSCRIPTION REPOSITORY
// ──────────────────────────────────────────────

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository.
type MockSubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.DriverSubscription

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockSubscriptionRepository creates a new mock subscription repository.
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		subs: make(map[string]*domain.DriverSubscription),
	}
}

// AddSubscription seeds a subscription.
func (m *MockSubscriptionRepository) AddSubscription(sub *domain.DriverSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *domain.DriverSubscription) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.ID] = sub
	return nil
}

func (m *MockSubscriptionRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.DriverID == driverID && s.Status == domain.SubscriptionStatusActive {
			copy := *s
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockSubscriptionRepository) GetActiveByDriverIDForUpdate(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	return m.GetActiveByDriverID(ctx, driverID)
}

func (m *MockSubscriptionRepository) GetLatestByDriverID(ctx context.Context, driverID string) (*domain.DriverSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.DriverSubscription
	for _, s := range m.subs {
		if s.DriverID != driverID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copy := *latest
	return &copy, nil
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, sub *domain.DriverSubscription) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[sub.ID]; !ok {
		return repository.ErrNotFound
	}
	m.subs[sub.ID] = sub
	return nil
}

// GetSubscription returns a subscription for test assertions.
func (m *MockSubscriptionRepository) GetSubscription(id string) *domain.DriverSubscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subs[id]
}

// ──────────────────────────────────────────────
// MOCK WALLET REPOSITORY
// ──────────────────────────────────────────────

// MockWalletRepository is a mock implementation of WalletRepository with an
// in-memory ledger, ordered oldest first.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet
	ledger  map[string][]*domain.WalletTransaction

	// Counters for verification
	CreateCallCount        int32
	UpdateBalanceCallCount int32
	AppendCallCount        int32

	// Error injection
	CreateError        error
	UpdateBalanceError error
	AppendError        error
}

// NewMockWalletRepository creates a new mock wallet repository.
func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make(map[string]*domain.Wallet),
		ledger:  make(map[string][]*domain.WalletTransaction),
	}
}

// AddWallet seeds a wallet.
func (m *MockWalletRepository) AddWallet(w *domain.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets[w.ID] = w
}

func (m *MockWalletRepository) GetByOwner(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			copy := *w
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockWalletRepository) GetByOwnerForUpdate(ctx context.Context, ownerID string, ownerType domain.WalletOwnerType) (*domain.Wallet, error) {
	return m.GetByOwner(ctx, ownerID, ownerType)
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *wallet
	m.wallets[wallet.ID] = &copy
	return nil
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, walletID string, balance float64) error {
	atomic.AddInt32(&m.UpdateBalanceCallCount, 1)
	if m.UpdateBalanceError != nil {
		return m.UpdateBalanceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletID]
	if !ok {
		return repository.ErrNotFound
	}
	w.Balance = balance
	return nil
}

func (m *MockWalletRepository) AppendTransaction(ctx context.Context, txn *domain.WalletTransaction) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *txn
	m.ledger[txn.WalletID] = append(m.ledger[txn.WalletID], &copy)
	return nil
}

func (m *MockWalletRepository) GetTransactions(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.ledger[walletID]
	// Newest first, like the SQL repository.
	result := make([]*domain.WalletTransaction, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		result = append(result, entries[i])
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// GetWalletByOwner returns the wallet for test assertions.
func (m *MockWalletRepository) GetWalletByOwner(ownerID string, ownerType domain.WalletOwnerType) *domain.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			return w
		}
	}
	return nil
}

// Ledger returns the full ledger for a wallet, oldest first.
func (m *MockWalletRepository) Ledger(walletID string) []*domain.WalletTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger[walletID]
}

// ──────────────────────────────────────────────
// MOCK CANCELLATION REPOSITORY
// ──────────────────────────────────────────────

// MockCancellationRepository is a mock implementation of CancellationRepository.
type MockCancellationRepository struct {
	mu      sync.RWMutex
	records []*domain.CancellationRecord

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockCancellationRepository creates a new mock cancellation repository.
func NewMockCancellationRepository() *MockCancellationRepository {
	return &MockCancellationRepository{}
}

// AddRecord seeds an audit record.
func (m *MockCancellationRepository) AddRecord(rec *domain.CancellationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *MockCancellationRepository) Create(ctx context.Context, rec *domain.CancellationRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *rec
	m.records = append(m.records, &copy)
	return nil
}

func (m *MockCancellationRepository) CountValidReasonSince(ctx context.Context, driverID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.records {
		if r.DriverID == driverID && r.Category == domain.CancellationValidReason && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountRecords returns the number of audit records.
func (m *MockCancellationRepository) CountRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ──────────────────────────────────────────────
// MOCK LIVENESS STORE
// ──────────────────────────────────────────────

// MockLivenessStore is a mock implementation of LivenessStoreInterface.
type MockLivenessStore struct {
	mu    sync.Mutex
	alive map[string]bool

	// Counters for verification
	RefreshCallCount int32
	DeleteCallCount  int32

	// Error injection
	RefreshError error
}

// NewMockLivenessStore creates a new mock liveness store.
func NewMockLivenessStore() *MockLivenessStore {
	return &MockLivenessStore{
		alive: make(map[string]bool),
	}
}

func (m *MockLivenessStore) Refresh(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.RefreshCallCount, 1)
	if m.RefreshError != nil {
		return m.RefreshError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive[driverID] = true
	return nil
}

func (m *MockLivenessStore) Delete(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alive, driverID)
	return nil
}

func (m *MockLivenessStore) IsAlive(ctx context.Context, driverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive[driverID], nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireHeartbeatLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:heartbeat:" + driverID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseHeartbeatLock(ctx context.Context, driverID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:heartbeat:"+driverID)
	return nil
}

// IsLocked checks if a driver is locked (for test assertions).
func (m *MockLockStore) IsLocked(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:heartbeat:"+driverID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
