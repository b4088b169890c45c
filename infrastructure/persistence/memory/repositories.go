package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"fitquest/domain/competition"
	"fitquest/domain/gamification"
	"fitquest/domain/identity"
	"fitquest/domain/shared"
)

type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Save(ctx context.Context, u *identity.User) error {
	dto := u.ToDTO()
	isNew := u.IsNew()
	err := r.store.write(ctx, func(st *state) error {
		if owner, ok := st.emails[dto.Email]; ok && owner != dto.ID {
			return identity.NewEmailAlreadyExistsError(dto.Email)
		}
		current, exists := st.users[dto.ID]
		if isNew {
			if exists {
				return shared.NewConflictError("user", "user already exists: "+dto.ID)
			}
		} else {
			if !exists {
				return identity.NewUserNotFoundError(dto.ID)
			}
			if current.Version != dto.Version {
				return shared.NewConcurrentModificationError("user", dto.ID)
			}
			delete(st.emails, current.Email)
			dto.Version++
		}
		st.users[dto.ID] = dto
		st.emails[dto.Email] = dto.ID
		return nil
	})
	if err != nil {
		return err
	}
	u.MarkPersisted()
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		dto identity.ReconstructionDTO
		ok  bool
	)
	r.store.read(func(st *state) { dto, ok = st.users[id] })
	if !ok {
		return nil, identity.NewUserNotFoundError(id)
	}
	return identity.RebuildFromDTO(dto), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		dto identity.ReconstructionDTO
		ok  bool
	)
	r.store.read(func(st *state) {
		if id, found := st.emails[strings.ToLower(strings.TrimSpace(email))]; found {
			dto, ok = st.users[id]
		}
	})
	if !ok {
		return nil, shared.NewNotFoundError("user")
	}
	return identity.RebuildFromDTO(dto), nil
}

type ProfileRepository struct {
	store *Store
}

func NewProfileRepository(store *Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Save(ctx context.Context, p *gamification.PointsProfile) error {
	dto := p.ToDTO()
	isNew := p.IsNew()
	err := r.store.write(ctx, func(st *state) error {
		current, exists := st.profiles[dto.UserID]
		if isNew {
			if exists {
				return shared.NewConcurrentModificationError("points_profile", dto.UserID)
			}
		} else {
			if !exists {
				return shared.NewNotFoundError("points_profile")
			}
			if current.Version != dto.Version {
				return shared.NewConcurrentModificationError("points_profile", dto.UserID)
			}
			dto.Version++
		}
		st.profiles[dto.UserID] = dto
		return nil
	})
	if err != nil {
		return err
	}
	p.MarkPersisted()
	return nil
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*gamification.PointsProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		dto gamification.ReconstructionDTO
		ok  bool
	)
	r.store.read(func(st *state) { dto, ok = st.profiles[userID] })
	if !ok {
		return nil, nil
	}
	return gamification.RebuildFromDTO(dto), nil
}

type MemberRepository struct {
	store *Store
}

func NewMemberRepository(store *Store) *MemberRepository {
	return &MemberRepository{store: store}
}

func (r *MemberRepository) Save(ctx context.Context, m *competition.LeagueMember) error {
	dto := m.ToDTO()
	key := m.Key()
	isNew := m.IsNew()
	err := r.store.write(ctx, func(st *state) error {
		current, exists := st.members[key]
		if isNew {
			if exists {
				return competition.NewMemberAlreadyJoinedError(key)
			}
		} else {
			if !exists {
				return shared.NewNotFoundError("league_member")
			}
			if current.Version != dto.Version {
				return shared.NewConcurrentModificationError("league_member", key.String())
			}
			dto.Version++
		}
		st.members[key] = dto
		return nil
	})
	if err != nil {
		return err
	}
	m.MarkPersisted()
	return nil
}

func (r *MemberRepository) FindByUserAndWeek(ctx context.Context, userID string, week shared.WeekID) (*competition.LeagueMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		dto competition.ReconstructionDTO
		ok  bool
	)
	r.store.read(func(st *state) { dto, ok = st.members[competition.MemberKey{UserID: userID, WeekID: week}] })
	if !ok {
		return nil, nil
	}
	return competition.RebuildFromDTO(dto), nil
}

func (r *MemberRepository) FindBySpecification(ctx context.Context, spec shared.Specification[*competition.LeagueMember]) ([]*competition.LeagueMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var all []*competition.LeagueMember
	r.store.read(func(st *state) {
		for _, dto := range st.members {
			all = append(all, competition.RebuildFromDTO(dto))
		}
	})
	slices.SortFunc(all, func(a, b *competition.LeagueMember) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return shared.Filter(ctx, spec, all), nil
}

type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) IsProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var ok bool
	r.store.read(func(st *state) { _, ok = st.ledger[ledgerKey{consumer, eventID}] })
	return ok, nil
}

// MarkProcessed 重复登记视为并发投递冲突，调用方重试后会看到已处理
func (r *LedgerRepository) MarkProcessed(ctx context.Context, consumer, eventID string, processedAt time.Time) error {
	key := ledgerKey{consumer, eventID}
	return r.store.write(ctx, func(st *state) error {
		if _, exists := st.ledger[key]; exists {
			return shared.NewConcurrentModificationError("processed_event", consumer+"/"+eventID)
		}
		st.ledger[key] = processedAt
		return nil
	})
}

var (
	_ identity.Repository              = (*UserRepository)(nil)
	_ gamification.Repository          = (*ProfileRepository)(nil)
	_ competition.Repository           = (*MemberRepository)(nil)
	_ competition.ProcessedEventLedger = (*LedgerRepository)(nil)
)
