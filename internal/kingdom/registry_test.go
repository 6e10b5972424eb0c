package kingdom

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezhov/kingdoms/internal/claims"
	"github.com/mezhov/kingdoms/internal/event"
)

// newTestRegistry -- хелпер: реестр с in-memory claims и без слушателей.
func newTestRegistry(t *testing.T) (*Registry, *claims.InMemory) {
	t.Helper()
	svc := claims.NewInMemory()
	return NewRegistry(svc, event.Nop, nil), svc
}

func founded(t *testing.T, r *Registry, name string, color Color) (uuid.UUID, *Kingdom) {
	t.Helper()
	owner := uuid.New()
	k, err := r.Create(owner, name, color)
	require.NoError(t, err, "Create(%s)", name)
	return owner, k
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "Avalon", want: "Avalon"},
		{name: "trimmed", raw: "  Avalon  ", want: "Avalon"},
		{name: "punctuation", raw: "King's Rest, North", want: "King's Rest, North"},
		{name: "too short", raw: "Av", wantErr: true},
		{name: "too long", raw: "Aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", wantErr: true},
		{name: "bad rune", raw: "Ava|on", wantErr: true},
		{name: "only spaces", raw: "     ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNameInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_Create(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, k := founded(t, r, "Avalon", ColorRed)

	assert.Equal(t, "Avalon", k.Name())
	assert.Equal(t, ColorRed, k.Color())
	assert.Equal(t, RoleLeader, k.RoleOf(owner))
	assert.Equal(t, 1, k.MemberCount())
	assert.NotEqual(t, uuid.Nil, k.PartyID(), "party must be linked on creation")

	// повторное создание тем же игроком
	_, err := r.Create(owner, "Camelot", ColorBlue)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	// имя занято, без учёта регистра
	_, err = r.Create(uuid.New(), "AVALON", ColorBlue)
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = r.Create(uuid.New(), "Camelot", Color(99))
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestRegistry_Rename(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, k := founded(t, r, "Avalon", ColorRed)
	founded(t, r, "Camelot", ColorBlue)

	require.NoError(t, r.Rename(owner, "New Avalon"))
	assert.Equal(t, "New Avalon", k.Name())

	got, ok := r.ByName("new avalon")
	require.True(t, ok, "lookup must follow rename")
	assert.Same(t, k, got)
	_, ok = r.ByName("Avalon")
	assert.False(t, ok, "old name must be released")

	assert.ErrorIs(t, r.Rename(owner, "new AVALON"), ErrNoChange)
	assert.ErrorIs(t, r.Rename(owner, "Camelot"), ErrNameTaken)

	// только владелец
	member := uuid.New()
	require.NoError(t, r.Invite(owner, member))
	require.NoError(t, r.Join(member, "New Avalon"))
	assert.ErrorIs(t, r.Rename(member, "Mine Now"), ErrNoPermission)
	assert.Equal(t, "New Avalon", k.Name())
}

func TestRegistry_SetColor(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, k := founded(t, r, "Avalon", ColorRed)

	require.NoError(t, r.SetColor(owner, ColorLime))
	assert.Equal(t, ColorLime, k.Color())
	assert.ErrorIs(t, r.SetColor(owner, ColorLime), ErrNoChange)
	assert.ErrorIs(t, r.SetColor(owner, Color(-1)), ErrUnknownColor)

	citizen := uuid.New()
	require.NoError(t, r.Invite(owner, citizen))
	require.NoError(t, r.Join(citizen, "Avalon"))
	assert.ErrorIs(t, r.SetColor(citizen, ColorBlue), ErrNoPermission)

	require.NoError(t, r.AssignRole(owner, citizen, RoleOfficer))
	assert.NoError(t, r.SetColor(citizen, ColorBlue), "officers hold command rank")
}

func TestRegistry_AssignRole(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, k := founded(t, r, "Avalon", ColorRed)
	member := uuid.New()
	require.NoError(t, r.Invite(owner, member))
	require.NoError(t, r.Join(member, "Avalon"))
	assert.Equal(t, RoleCitizen, k.RoleOf(member))

	require.NoError(t, r.AssignRole(owner, member, RoleMilitary))
	assert.Equal(t, RoleMilitary, k.RoleOf(member))

	// лидерство не передаётся
	assert.ErrorIs(t, r.AssignRole(owner, member, RoleLeader), ErrLeaderTransfer)
	assert.NoError(t, r.AssignRole(owner, owner, RoleLeader), "owner may be reaffirmed leader")

	assert.ErrorIs(t, r.AssignRole(owner, uuid.New(), RoleMilitary), ErrMemberUnknown)
	assert.ErrorIs(t, r.AssignRole(member, owner, RoleCitizen), ErrNoPermission)
	assert.ErrorIs(t, r.AssignRole(uuid.New(), member, RoleCitizen), ErrNotMember)
}

func TestRegistry_InviteJoin(t *testing.T) {
	r, _ := newTestRegistry(t)
	ownerA, _ := founded(t, r, "Avalon", ColorRed)
	ownerB, _ := founded(t, r, "Camelot", ColorBlue)
	p := uuid.New()

	require.NoError(t, r.Invite(ownerA, p))
	assert.ErrorIs(t, r.Invite(ownerA, p), ErrInviteExists, "duplicate pending invite")
	require.NoError(t, r.Invite(ownerB, p))
	assert.ElementsMatch(t, []string{"Avalon", "Camelot"}, r.InvitesFor(p))

	assert.ErrorIs(t, r.Invite(ownerA, ownerA), ErrInviteSelf)
	assert.ErrorIs(t, r.Invite(ownerA, ownerB), ErrAlreadyMember)

	// join без приглашения
	stranger := uuid.New()
	assert.ErrorIs(t, r.Join(stranger, "Avalon"), ErrNoInvite)
	assert.ErrorIs(t, r.Join(p, "Nowhere"), ErrUnknownKingdom)

	require.NoError(t, r.Join(p, "avalon"))
	k, ok := r.ByMember(p)
	require.True(t, ok)
	assert.Equal(t, "Avalon", k.Name())
	assert.Equal(t, RoleCitizen, k.RoleOf(p))

	// членство глобально уникально
	assert.ErrorIs(t, r.Join(p, "Camelot"), ErrAlreadyMember)
	assert.False(t, r.HasInvite(p, ownerA), "consumed invite is gone")
	assert.True(t, r.HasInvite(p, ownerB), "other invites survive the join")
}

func TestRegistry_Leave(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, _ := founded(t, r, "Avalon", ColorRed)
	member := uuid.New()
	require.NoError(t, r.Invite(owner, member))
	require.NoError(t, r.Join(member, "Avalon"))

	// владелец не может бросить подданных
	assert.ErrorIs(t, r.Leave(owner), ErrLeaderHasMembers)

	require.NoError(t, r.Leave(member))
	_, ok := r.ByMember(member)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Leave(member), ErrNotMember)

	// последний участник-владелец распускает королевство
	require.NoError(t, r.Leave(owner))
	_, ok = r.ByName("Avalon")
	assert.False(t, ok, "kingdom must be gone after owner leaves")
	_, err := r.Create(uuid.New(), "Avalon", ColorBlue)
	assert.NoError(t, err, "name must be free again")
}

func TestRegistry_ForceAssign(t *testing.T) {
	r, _ := newTestRegistry(t)
	ownerA, kA := founded(t, r, "Avalon", ColorRed)
	_, kB := founded(t, r, "Camelot", ColorBlue)
	p := uuid.New()
	require.NoError(t, r.Invite(ownerA, p))
	require.NoError(t, r.Join(p, "Avalon"))

	require.NoError(t, r.ForceAssign(p, "Camelot"))
	assert.False(t, kA.HasMember(p))
	assert.True(t, kB.HasMember(p))

	// перемещение в то же королевство — успешный no-op, даже для владельца
	require.NoError(t, r.ForceAssign(p, "Camelot"))
	assert.True(t, kB.HasMember(p))
	require.NoError(t, r.ForceAssign(ownerA, "Avalon"))
	assert.True(t, kA.HasMember(ownerA))

	assert.ErrorIs(t, r.ForceAssign(ownerA, "Camelot"), ErrOwnerCannotMove)
	assert.ErrorIs(t, r.ForceAssign(uuid.New(), "Nowhere"), ErrUnknownKingdom)
}

func TestRegistry_UpdateDesign(t *testing.T) {
	r, _ := newTestRegistry(t)
	owner, k := founded(t, r, "Avalon", ColorRed)

	err := r.UpdateDesign(owner, func(d Design) Design {
		d.Primary = ColorBlack
		d.Layers = append(d.Layers, BannerLayer{PatternID: "stripe_top", Color: ColorYellow})
		return d
	})
	require.NoError(t, err)
	got := k.Design()
	assert.Equal(t, ColorBlack, got.Primary)
	require.Len(t, got.Layers, 1)
	assert.Equal(t, "stripe_top", got.Layers[0].PatternID)

	assert.ErrorIs(t, r.UpdateDesign(uuid.New(), func(d Design) Design { return d }), ErrNotMember)
}

func TestRegistry_Absorb(t *testing.T) {
	r, svc := newTestRegistry(t)
	ownerA, kA := founded(t, r, "Avalon", ColorRed)
	ownerB, kB := founded(t, r, "Camelot", ColorBlue)
	soldier := uuid.New()
	officer := uuid.New()
	require.NoError(t, r.Invite(ownerB, soldier))
	require.NoError(t, r.Join(soldier, "Camelot"))
	require.NoError(t, r.AssignRole(ownerB, soldier, RoleMilitary))
	require.NoError(t, r.Invite(ownerB, officer))
	require.NoError(t, r.Join(officer, "Camelot"))
	require.NoError(t, r.AssignRole(ownerB, officer, RoleOfficer))
	require.NoError(t, svc.PutRegion(kB.PartyID(), claims.Snapshot{
		RegionID: uuid.New(),
		Name:     "Camelot Keep",
		World:    "overworld",
		Bounds:   claims.ChunkBounds{MinX: 0, MinZ: 0, MaxX: 2, MaxZ: 2},
	}))

	require.NoError(t, r.Absorb(ownerA, ownerB))

	_, ok := r.ByName("Camelot")
	assert.False(t, ok, "loser must be deleted")
	assert.True(t, kA.HasMember(ownerB))
	assert.True(t, kA.HasMember(soldier))
	assert.True(t, kA.HasMember(officer))
	// проигравшая иерархия не переносится: никаких командных рангов
	assert.Equal(t, RoleCitizen, kA.RoleOf(ownerB))
	assert.Equal(t, RoleCitizen, kA.RoleOf(soldier))
	assert.Equal(t, RoleCitizen, kA.RoleOf(officer))

	snaps, _, err := svc.SnapshotsFor(kA.PartyID())
	require.NoError(t, err)
	assert.Len(t, snaps, 1, "territory must move to the winner")

	assert.ErrorIs(t, r.Absorb(ownerA, ownerB), ErrUnknownKingdom)
}

func TestRegistry_Names(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, kA := founded(t, r, "Zulu", ColorRed)
	_, kB := founded(t, r, "Alpha", ColorBlue)
	founded(t, r, "Hamlet", ColorLime) // below threshold, stays hidden

	kA.SetClaimCount(MinClaimCount)
	kB.SetClaimCount(MinClaimCount + 3)

	assert.Equal(t, []string{"Alpha", "Zulu"}, r.Names())
}

func TestRegistry_SnapshotRestore(t *testing.T) {
	r, _ := newTestRegistry(t)
	ownerA, kA := founded(t, r, "Avalon", ColorRed)
	ownerB, _ := founded(t, r, "Camelot", ColorBlue)
	member := uuid.New()
	require.NoError(t, r.Invite(ownerA, member))
	require.NoError(t, r.Join(member, "Avalon"))
	require.NoError(t, r.AssignRole(ownerA, member, RoleOfficer))
	kA.SetClaimCount(12)
	invitee := uuid.New()
	require.NoError(t, r.Invite(ownerB, invitee))

	st := r.Snapshot()

	restored := NewRegistry(claims.NewInMemory(), event.Nop, nil)
	restored.Restore(st)

	k, ok := restored.ByName("Avalon")
	require.True(t, ok)
	assert.Equal(t, ColorRed, k.Color())
	assert.Equal(t, 12, k.ClaimCount())
	assert.Equal(t, RoleOfficer, k.RoleOf(member))
	assert.Equal(t, RoleLeader, k.RoleOf(ownerA))
	assert.True(t, restored.HasInvite(invitee, ownerB))

	got, ok := restored.ByMember(member)
	require.True(t, ok)
	assert.Same(t, k, got)
}

func TestRegistry_RestoreDropsStaleInvites(t *testing.T) {
	st := RegistryState{
		Kingdoms: []KingdomState{{
			Owner: uuid.New(),
			Name:  "Avalon",
			Color: int32(ColorRed),
		}},
		Invites: []InviteState{{
			Invitee:  uuid.New(),
			Kingdoms: []uuid.UUID{uuid.New()}, // kingdom no longer exists
		}},
	}
	r := NewRegistry(nil, event.Nop, nil)
	r.Restore(st)

	k, ok := r.ByName("Avalon")
	require.True(t, ok)
	assert.Equal(t, 1, k.MemberCount(), "owner is implicit member")
	assert.Empty(t, r.InvitesFor(st.Invites[0].Invitee))
}
