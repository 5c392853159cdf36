package coordinator

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/leaf/connector"
	"github.com/ceyewan/leaf/xerrors"
)

// EtcdRegistry 基于 etcd 的 Registry
//
// etcd 没有顺序节点，父节点的 value 充当序号计数器：CreateSequential 在一个事务里
// 比较父节点的 ModRevision，同时写入计数器 +1 与新子节点，冲突时重读重试。
type EtcdRegistry struct {
	conn connector.EtcdConnector
}

var _ Registry = (*EtcdRegistry)(nil)

// NewEtcdRegistry 借用 etcd 连接器，不负责其生命周期
func NewEtcdRegistry(conn connector.EtcdConnector) (*EtcdRegistry, error) {
	if conn == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "etcd connector is required")
	}
	return &EtcdRegistry{conn: conn}, nil
}

func (r *EtcdRegistry) client() (*clientv3.Client, error) {
	cli := r.conn.GetClient()
	if cli == nil {
		return nil, xerrors.Wrapf(connector.ErrClientNil, "connector %s", r.conn.Name())
	}
	return cli, nil
}

func (r *EtcdRegistry) Exists(ctx context.Context, p string) (bool, error) {
	cli, err := r.client()
	if err != nil {
		return false, err
	}
	resp, err := cli.Get(ctx, p, clientv3.WithCountOnly())
	if err != nil {
		return false, xerrors.Wrapf(err, "etcd get %s", p)
	}
	return resp.Count > 0, nil
}

func (r *EtcdRegistry) EnsureParent(ctx context.Context, p string) error {
	cli, err := r.client()
	if err != nil {
		return err
	}
	_, err = cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(p), "=", 0)).
		Then(clientv3.OpPut(p, "0")).
		Commit()
	if err != nil {
		return xerrors.Wrapf(err, "etcd ensure %s", p)
	}
	return nil
}

func (r *EtcdRegistry) CreateSequential(ctx context.Context, prefix string, data []byte) (string, error) {
	cli, err := r.client()
	if err != nil {
		return "", err
	}
	parent := path.Dir(prefix)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := cli.Get(ctx, parent)
		if err != nil {
			return "", xerrors.Wrapf(err, "etcd get %s", parent)
		}
		var (
			seq    int64
			modRev int64
		)
		if len(resp.Kvs) > 0 {
			modRev = resp.Kvs[0].ModRevision
			if v := string(resp.Kvs[0].Value); v != "" {
				if seq, err = strconv.ParseInt(v, 10, 64); err != nil {
					return "", xerrors.Wrapf(err, "parse sequence counter %s", parent)
				}
			}
		}

		node := fmt.Sprintf("%s%010d", prefix, seq)
		txn, err := cli.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(parent), "=", modRev)).
			Then(
				clientv3.OpPut(parent, strconv.FormatInt(seq+1, 10)),
				clientv3.OpPut(node, string(data)),
			).
			Commit()
		if err != nil {
			return "", xerrors.Wrapf(err, "etcd create %s", node)
		}
		if txn.Succeeded {
			return node, nil
		}
	}
}

func (r *EtcdRegistry) Get(ctx context.Context, p string) ([]byte, error) {
	cli, err := r.client()
	if err != nil {
		return nil, err
	}
	resp, err := cli.Get(ctx, p)
	if err != nil {
		return nil, xerrors.Wrapf(err, "etcd get %s", p)
	}
	if len(resp.Kvs) == 0 {
		return nil, xerrors.Wrap(ErrNodeNotFound, p)
	}
	return resp.Kvs[0].Value, nil
}

func (r *EtcdRegistry) Put(ctx context.Context, p string, data []byte) error {
	cli, err := r.client()
	if err != nil {
		return err
	}
	if _, err := cli.Put(ctx, p, string(data)); err != nil {
		return xerrors.Wrapf(err, "etcd put %s", p)
	}
	return nil
}

func (r *EtcdRegistry) Children(ctx context.Context, parent string) ([]string, error) {
	cli, err := r.client()
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(parent, "/") + "/"
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, xerrors.Wrapf(err, "etcd list %s", prefix)
	}
	children := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		name := strings.TrimPrefix(string(kv.Key), prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		children = append(children, name)
	}
	return children, nil
}
