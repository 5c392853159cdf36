package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/db"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/xerrors"
)

// LeafAlloc leaf_alloc 表
//
//	CREATE TABLE leaf_alloc (
//	  biz_tag     varchar(128) NOT NULL PRIMARY KEY,
//	  max_id      bigint       NOT NULL DEFAULT 1,
//	  step        int          NOT NULL,
//	  description varchar(256) DEFAULT NULL,
//	  update_time timestamp    NOT NULL
//	);
type LeafAlloc struct {
	BizTag      string    `gorm:"column:biz_tag;primaryKey;type:varchar(128)"`
	MaxID       int64     `gorm:"column:max_id;not null;default:1"`
	Step        int       `gorm:"column:step;not null"`
	Description string    `gorm:"column:description;type:varchar(256)"`
	UpdateTime  time.Time `gorm:"column:update_time;not null"`
}

// TableName 固定表名
func (LeafAlloc) TableName() string {
	return "leaf_alloc"
}

// Gorm 基于关系数据库的号段存储，MySQL、PostgreSQL 与 SQLite 共用一套语句
type Gorm struct {
	db     db.DB
	logger clog.Logger
	now    func() time.Time
}

var _ segment.Store = (*Gorm)(nil)

// NewGorm 创建数据库号段存储
func NewGorm(database db.DB, opts ...Option) (*Gorm, error) {
	if database == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "db is nil")
	}
	o := applyOptions(opts)
	return &Gorm{db: database, logger: o.logger, now: o.now}, nil
}

// AutoMigrate 创建或更新 leaf_alloc 表结构
func (s *Gorm) AutoMigrate(ctx context.Context) error {
	if err := s.db.DB(ctx).AutoMigrate(&LeafAlloc{}); err != nil {
		return xerrors.Wrap(err, "migrate leaf_alloc")
	}
	return nil
}

// Register 登记一个 tag，max_id 从 1 开始；已存在时保持原记录不变
func (s *Gorm) Register(ctx context.Context, tag string, step int, desc string) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	if step <= 0 {
		return xerrors.Wrapf(ErrInvalidStep, "tag %q step %d", tag, step)
	}

	row := LeafAlloc{BizTag: tag, MaxID: 1, Step: step, Description: desc, UpdateTime: s.now()}
	res := s.db.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return xerrors.Wrapf(res.Error, "register tag %q", tag)
	}
	if res.RowsAffected > 0 {
		s.logger.InfoContext(ctx, "tag registered", clog.String("tag", tag), clog.Int("step", step))
	}
	return nil
}

func (s *Gorm) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := s.db.DB(ctx).Model(&LeafAlloc{}).Order("biz_tag").Pluck("biz_tag", &tags).Error; err != nil {
		return nil, xerrors.Wrap(err, "list tags")
	}
	return tags, nil
}

func (s *Gorm) BumpAndFetch(ctx context.Context, tag string) (segment.Allocation, error) {
	return s.bump(ctx, tag, gorm.Expr("max_id + step"))
}

func (s *Gorm) BumpByAndFetch(ctx context.Context, tag string, step int64) (segment.Allocation, error) {
	if step <= 0 {
		return segment.Allocation{}, xerrors.Wrapf(ErrInvalidStep, "tag %q step %d", tag, step)
	}
	return s.bump(ctx, tag, gorm.Expr("max_id + ?", step))
}

// bump 在同一事务内先更新再读取，行锁保证并发实例拿到的区间不重叠
func (s *Gorm) bump(ctx context.Context, tag string, expr clause.Expr) (segment.Allocation, error) {
	var row LeafAlloc
	err := s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Model(&LeafAlloc{}).
			Where("biz_tag = ?", tag).
			Updates(map[string]any{"max_id": expr, "update_time": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTagNotFound
		}
		return tx.Select("biz_tag", "max_id", "step").Where("biz_tag = ?", tag).Take(&row).Error
	})
	if err != nil {
		return segment.Allocation{}, xerrors.Wrapf(err, "bump tag %q", tag)
	}
	return segment.Allocation{MaxID: row.MaxID, Step: int64(row.Step)}, nil
}

func (s *Gorm) ListAllocationRecords(ctx context.Context) ([]segment.AllocRecord, error) {
	var rows []LeafAlloc
	if err := s.db.DB(ctx).Order("biz_tag").Find(&rows).Error; err != nil {
		return nil, xerrors.Wrap(err, "list leaf_alloc")
	}
	records := make([]segment.AllocRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, segment.AllocRecord{
			Tag:         r.BizTag,
			MaxID:       r.MaxID,
			Step:        int64(r.Step),
			Description: r.Description,
			UpdateTime:  r.UpdateTime,
		})
	}
	return records, nil
}
