package coordinator

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"

	"github.com/ceyewan/leaf/xerrors"
)

// Endpoint 节点数据，心跳时刷新 Timestamp
type Endpoint struct {
	IP        string `json:"ip"`
	Port      string `json:"port"`
	Timestamp int64  `json:"timestamp"`
}

func decodeEndpoint(data []byte) (Endpoint, error) {
	var ep Endpoint
	if err := json.Unmarshal(data, &ep); err != nil {
		return Endpoint{}, xerrors.Wrap(err, "decode endpoint")
	}
	return ep, nil
}

const cacheKey = "workerID"

// cacheFile {dir}/{name}/leafconf/{port}/workerID.properties
func cacheFile(dir, name string, port int) string {
	return filepath.Join(dir, name, "leafconf", strconv.Itoa(port), "workerID.properties")
}

// writeCache 以 properties 格式写入，保留 key 的大小写
func writeCache(file string, workerID int64) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return xerrors.Wrap(err, "create cache dir")
	}
	p := properties.NewProperties()
	if _, _, err := p.Set(cacheKey, strconv.FormatInt(workerID, 10)); err != nil {
		return xerrors.Wrap(err, "encode cache")
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return xerrors.Wrap(err, "encode cache")
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return xerrors.Wrap(err, "write cache file")
	}
	return nil
}

func readCache(file string) (int64, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return 0, xerrors.Join(ErrCacheMissing, xerrors.Wrapf(err, "read %s", file))
	}
	if !v.IsSet(cacheKey) {
		return 0, xerrors.Wrapf(ErrCacheMissing, "%s has no %s entry", file, cacheKey)
	}
	id, err := strconv.ParseInt(v.GetString(cacheKey), 10, 64)
	if err != nil {
		return 0, xerrors.Join(ErrCacheMissing, xerrors.Wrapf(err, "parse %s", file))
	}
	return id, nil
}
