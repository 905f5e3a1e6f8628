package ethereum

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
)

var (
	//go:embed abi/RealEstateOracle.json
	oracleABIJSON []byte
	//go:embed abi/RealEstateToken.json
	tokenABIJSON []byte
)

type contractABIs struct {
	oracle abi.ABI
	token  abi.ABI
}

var (
	abisOnce   sync.Once
	abisParsed contractABIs
	abisErr    error
)

func loadABIs() (contractABIs, error) {
	abisOnce.Do(func() {
		oracleABI, err := abi.JSON(bytes.NewReader(oracleABIJSON))
		if err != nil {
			abisErr = errs.Wrap(err, "parse oracle abi")
			return
		}
		tokenABI, err := abi.JSON(bytes.NewReader(tokenABIJSON))
		if err != nil {
			abisErr = errs.Wrap(err, "parse token abi")
			return
		}
		abisParsed = contractABIs{oracle: oracleABI, token: tokenABI}
	})
	return abisParsed, abisErr
}

func eventTopics(oracleABI abi.ABI) []common.Hash {
	kinds := []oracle.Kind{oracle.KindValuationRequested, oracle.KindValuationUpdated, oracle.KindRequestFailed}
	topics := make([]common.Hash, 0, len(kinds))
	for _, kind := range kinds {
		if event, ok := oracleABI.Events[string(kind)]; ok {
			topics = append(topics, event.ID)
		}
	}
	return topics
}
