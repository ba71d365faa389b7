package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// applyQueryTimeout 调用方未设置 deadline 时应用查询超时
func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.QueryTimeout)
}

// QueryOne 查询单条记录，按列名映射到 T 的 db tag；无结果时返回 ErrNoRows
func QueryOne[T any](c *Client, ctx context.Context, sql string, args ...any) (*T, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return v, nil
}

// QueryAll 查询多条记录
func QueryAll[T any](c *Client, ctx context.Context, sql string, args ...any) ([]*T, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	vs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return vs, nil
}

// QueryValue 查询单个标量值（如 nextval、count）
func QueryValue[T any](c *Client, ctx context.Context, sql string, args ...any) (T, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	var zero T
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return zero, fmt.Errorf("query failed: %w", err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNoRows
		}
		return zero, fmt.Errorf("scan failed: %w", err)
	}
	return v, nil
}

// Exec 执行写操作（INSERT/UPDATE/DELETE/DDL），返回影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	result, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return result.RowsAffected(), nil
}

// Exists 检查查询是否有结果
func (c *Client) Exists(ctx context.Context, sql string, args ...any) (bool, error) {
	return QueryValue[bool](c, ctx, "SELECT EXISTS("+sql+")", args...)
}
