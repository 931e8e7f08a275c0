package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tcfw/blockmesh/pkg/tx"
)

// Genesis is the YAML seed for the one distinguished genesis block
type Genesis struct {
	ChainID   string   `yaml:"chain_id"`
	Timestamp int64    `yaml:"timestamp"`
	Nonce     uint64   `yaml:"nonce"`
	Txs       []string `yaml:"txs"`
}

func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading genesis seed")
	}

	g := &Genesis{}
	if err := yaml.Unmarshal(raw, g); err != nil {
		return nil, errors.Wrap(err, "unmarshaling genesis seed")
	}

	if g.ChainID == "" {
		return nil, errors.New("genesis seed missing chain id")
	}

	return g, nil
}

// TxRefs derives content refs from the seed's opaque tx payloads
func (g *Genesis) TxRefs() ([]tx.Ref, error) {
	refs := make([]tx.Ref, 0, len(g.Txs))

	for _, payload := range g.Txs {
		r, err := tx.NewRef([]byte(payload))
		if err != nil {
			return nil, errors.Wrap(err, "deriving genesis tx ref")
		}
		refs = append(refs, r)
	}

	return refs, nil
}
