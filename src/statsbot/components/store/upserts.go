package store

import (
	"context"

	"github.com/cognita-labs/cognita/src/shared/types"
	"github.com/cognita-labs/cognita/src/statsbot/components/source"
	"gorm.io/gorm/clause"
)

var conflictOnID = []clause.Column{{Name: "id"}}

// EnsureUser creates a user row if none exists, leaving existing rows alone.
// This is the lazy-creation path for authors, reactors and mention targets
// observed before their member record.
func (s *Store) EnsureUser(ctx context.Context, u *types.User) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: conflictOnID, DoNothing: true}).
		Create(u).Error
}

// UpsertUser inserts or refreshes a fully-known user.
func (s *Store) UpsertUser(ctx context.Context, u *types.User) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{"username", "bot"}),
		}).
		Create(u).Error
}

func (s *Store) UpsertGuild(ctx context.Context, g *types.Guild) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).
		Create(g).Error
}

func (s *Store) UpsertCategory(ctx context.Context, c *types.Category) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{"name", "position", "deleted"}),
		}).
		Create(c).Error
}

func (s *Store) UpsertChannel(ctx context.Context, c *types.Channel) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "topic", "category_id", "position", "nsfw", "slowmode", "deleted",
			}),
		}).
		Create(c).Error
}

func (s *Store) UpsertThread(ctx context.Context, t *types.Thread) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "archived", "locked", "private", "auto_archive_minutes", "archiver_id", "deleted",
			}),
		}).
		Create(t).Error
}

func (s *Store) UpsertRole(ctx context.Context, r *types.Role) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "color", "hoisted", "managed", "position", "deleted",
			}),
		}).
		Create(r).Error
}

func (s *Store) UpsertEmote(ctx context.Context, e *types.Emote) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   conflictOnID,
			DoUpdates: clause.AssignmentColumns([]string{"name", "animated", "url", "deleted"}),
		}).
		Create(e).Error
}

// AddRoleMember records current role membership. Grant/revoke history is the
// listener's concern; structural sync during backfill only reconciles state.
func (s *Store) AddRoleMember(ctx context.Context, guildID, userID, roleID int64) error {
	row := types.RoleMembership{UserID: userID, RoleID: roleID, GuildID: guildID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (s *Store) RemoveRoleMember(ctx context.Context, userID, roleID int64) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&types.RoleMembership{}).Error
}

// RoleMemberships returns the stored role IDs of one member, used to diff
// member-update events against known state.
func (s *Store) RoleMemberships(ctx context.Context, guildID, userID int64) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&types.RoleMembership{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Pluck("role_id", &ids).Error
	return ids, err
}

// RecordRoleChange appends to the grant/revoke audit trail.
func (s *Store) RecordRoleChange(ctx context.Context, guildID, userID, roleID int64, action string) error {
	row := types.RoleHistory{UserID: userID, RoleID: roleID, GuildID: guildID, Action: action}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) UpsertGuildMember(ctx context.Context, m *types.GuildMembership) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nickname"}),
		}).
		Create(m).Error
}

// RemoveGuildMember drops the membership and the member's role rows for that
// guild. The user row itself stays; history must survive departure.
func (s *Store) RemoveGuildMember(ctx context.Context, guildID, userID int64) error {
	if err := s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&types.GuildMembership{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&types.RoleMembership{}).Error
}

// RecordMemberEvent appends a join/leave row.
func (s *Store) RecordMemberEvent(ctx context.Context, ev *types.MemberEvent) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *Store) SoftDeleteChannel(ctx context.Context, id int64) error {
	return s.softDelete(ctx, &types.Channel{}, id)
}

func (s *Store) SoftDeleteCategory(ctx context.Context, id int64) error {
	return s.softDelete(ctx, &types.Category{}, id)
}

func (s *Store) SoftDeleteThread(ctx context.Context, id int64) error {
	return s.softDelete(ctx, &types.Thread{}, id)
}

func (s *Store) SoftDeleteRole(ctx context.Context, id int64) error {
	return s.softDelete(ctx, &types.Role{}, id)
}

func (s *Store) SoftDeleteEmote(ctx context.Context, id int64) error {
	return s.softDelete(ctx, &types.Emote{}, id)
}

func (s *Store) softDelete(ctx context.Context, model interface{}, id int64) error {
	return s.db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Update("deleted", true).Error
}

// UserFromMember builds the user row carried by a member record.
func UserFromMember(m *source.Member) *types.User {
	return &types.User{
		ID:       m.UserID,
		Username: m.Username,
		Bot:      m.Bot,
		Created:  m.Created,
	}
}
