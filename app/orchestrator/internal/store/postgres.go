package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/database/postgres"
	"github.com/lk2023060901/flotilla/pkg/errs"
)

var (
	_ fleet.MetadataRepository = (*PostgresRepository)(nil)
	_ fleet.PortAllocator      = (*PostgresPortAllocator)(nil)
)

const (
	servicesTable   = "services"
	portSequence    = "service_port_seq"
	schemaStatement = `CREATE TABLE IF NOT EXISTS services (
	id             TEXT PRIMARY KEY,
	description    JSONB NOT NULL,
	symmetry_port  INTEGER NOT NULL DEFAULT 0,
	deployed_nodes TEXT[],
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE SEQUENCE IF NOT EXISTS service_port_seq START 1`
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// descriptionRow services 表的 description 列
type descriptionRow struct {
	Description []byte `db:"description"`
}

// PostgresRepository 服务描述整体存于 description 列，端口与部署节点另存一份便于查询
type PostgresRepository struct {
	client *postgres.Client
}

// NewPostgresRepository 创建 PostgreSQL 存储
func NewPostgresRepository(client *postgres.Client) *PostgresRepository {
	return &PostgresRepository{client: client}
}

// Migrate 创建表与端口序列
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.client.Exec(ctx, schemaStatement); err != nil {
		return fmt.Errorf("migrate services schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Has(ctx context.Context, id string) (bool, error) {
	query, args, err := buildHas(id)
	if err != nil {
		return false, err
	}
	return r.client.Exists(ctx, query, args...)
}

func (r *PostgresRepository) Save(ctx context.Context, desc *model.ServiceDescription) error {
	query, args, err := buildSave(desc)
	if err != nil {
		return err
	}
	_, err = r.client.Exec(ctx, query, args...)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.ServiceDescription, error) {
	query, args, err := buildGet(id)
	if err != nil {
		return nil, err
	}
	row, err := postgres.QueryOne[descriptionRow](r.client, ctx, query, args...)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, errs.NotFoundf("service %q not found", id)
		}
		return nil, err
	}
	return decodeDescription(row.Description)
}

func (r *PostgresRepository) Remove(ctx context.Context, id string) error {
	query, args, err := psql.Delete(servicesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	n, err := r.client.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.NotFoundf("service %q not found", id)
	}
	return nil
}

func (r *PostgresRepository) SetDeployedNodes(ctx context.Context, id string, nodeIDs []string) error {
	query, args, err := buildSetDeployedNodes(id, nodeIDs, time.Now())
	if err != nil {
		return err
	}
	n, err := r.client.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.NotFoundf("service %q not found", id)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*model.ServiceDescription, error) {
	query, args, err := psql.Select("description").From(servicesTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := postgres.QueryAll[descriptionRow](r.client, ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]*model.ServiceDescription, 0, len(rows))
	for _, row := range rows {
		desc, err := decodeDescription(row.Description)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func buildHas(id string) (string, []any, error) {
	return psql.Select("1").From(servicesTable).Where(sq.Eq{"id": id}).ToSql()
}

func buildGet(id string) (string, []any, error) {
	return psql.Select("description").From(servicesTable).Where(sq.Eq{"id": id}).ToSql()
}

// buildSave 按 id upsert，created_at 只在首次插入时写入
func buildSave(desc *model.ServiceDescription) (string, []any, error) {
	data, err := encodeDescription(desc)
	if err != nil {
		return "", nil, err
	}
	return psql.Insert(servicesTable).
		Columns("id", "description", "symmetry_port", "deployed_nodes", "created_at", "updated_at").
		Values(desc.ID, data, desc.SymmetryPort, desc.DeployedNodes, desc.CreatedAt, desc.UpdatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"description = EXCLUDED.description, " +
			"symmetry_port = EXCLUDED.symmetry_port, " +
			"deployed_nodes = EXCLUDED.deployed_nodes, " +
			"updated_at = EXCLUDED.updated_at").
		ToSql()
}

// buildSetDeployedNodes 同时改写 deployed_nodes 列与 description 中的同名字段
func buildSetDeployedNodes(id string, nodeIDs []string, now time.Time) (string, []any, error) {
	nodes := deployedNodes(nodeIDs)
	data, err := json.Marshal(nodes)
	if err != nil {
		return "", nil, err
	}
	return psql.Update(servicesTable).
		Set("description", sq.Expr("jsonb_set(description, '{deployed_nodes}', ?::jsonb)", string(data))).
		Set("deployed_nodes", nodes).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
}

// PostgresPortAllocator 以 nextval(service_port_seq) 分配端口
type PostgresPortAllocator struct {
	client *postgres.Client
	base   int
	max    int
}

// NewPostgresPortAllocator 创建端口分配器，分配区间为 [base, max]
func NewPostgresPortAllocator(client *postgres.Client, base, max int) *PostgresPortAllocator {
	return &PostgresPortAllocator{client: client, base: base, max: max}
}

func (a *PostgresPortAllocator) Allocate(ctx context.Context) (int, error) {
	n, err := postgres.QueryValue[int64](a.client, ctx, "SELECT nextval('"+portSequence+"')")
	if err != nil {
		return 0, err
	}
	return portFromSequence(a.base, a.max, n)
}
