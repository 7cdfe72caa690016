package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	nodeID := int64(1)
	if v := os.Getenv("SHOPD_NODE_ID"); v != "" {
		fmt.Sscanf(v, "%d", &nodeID)
	}
	var err error
	snowflakeNode, err = snowflake.NewNode(nodeID % 1024)
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a snowflake int64 id.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a snowflake id in string form.
func UUID() string {
	return snowflakeNode.Generate().String()
}

// RandomNum returns a random non-negative number below max.
func RandomNum(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0
	}
	return n.Int64()
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func IfEmptyStr(src string, def string) string {
	if src == "" {
		return def
	}
	return src
}
