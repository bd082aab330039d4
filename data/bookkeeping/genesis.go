// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package bookkeeping

import (
	"fmt"
	"os"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

// GenesisAccount is an account that exists before the first block.
type GenesisAccount struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Name      basics.AccountName `codec:"name"`
	OwnerKey  crypto.PublicKey   `codec:"owner"`
	ActiveKey crypto.PublicKey   `codec:"active"`
	BasicKey  crypto.PublicKey   `codec:"basic"`
	MemoKey   crypto.PublicKey   `codec:"memo"`

	// Balance is liquid MUSE; Vesting is MUSE converted to vesting shares
	// at the initial share price.
	Balance    int64 `codec:"bal"`
	MbdBalance int64 `codec:"mbd"`
	Vesting    int64 `codec:"vest"`
}

// GenesisWitness is a witness that exists before the first block. Its
// owner must be a genesis account.
type GenesisWitness struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner      basics.AccountName `codec:"owner"`
	SigningKey crypto.PublicKey   `codec:"key"`
	URL        string             `codec:"url"`
}

// Genesis defines a chain: its initial accounts and witnesses, and the
// hardfork schedule.
type Genesis struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ChainName string           `codec:"chain"`
	Timestamp basics.Timestamp `codec:"ts"`
	Accounts  []GenesisAccount `codec:"accts"`
	Witnesses []GenesisWitness `codec:"witnesses"`

	// HardforkTimes, when set, activates hardfork i+1 at HardforkTimes[i]
	// without waiting for a witness-majority vote.
	HardforkTimes []basics.Timestamp `codec:"hftimes"`

	Comment string `codec:"comment"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (genesis Genesis) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Genesis, protocol.Encode(&genesis)
}

// ChainID binds signatures to this chain.
func (genesis Genesis) ChainID() crypto.Digest {
	return crypto.HashObj(genesis)
}

// LoadGenesisFromFile attempts to load a Genesis structure from a (presumably) genesis.json file.
func LoadGenesisFromFile(genesisFile string) (genesis Genesis, err error) {
	genesisText, err := os.ReadFile(genesisFile)
	if err != nil {
		return
	}
	err = protocol.DecodeJSON(genesisText, &genesis)
	if err != nil {
		return
	}
	err = genesis.Validate()
	return
}

// SaveToFile writes the genesis as JSON.
func (genesis Genesis) SaveToFile(genesisFile string) error {
	return os.WriteFile(genesisFile, protocol.EncodeJSON(&genesis), 0644)
}

// Validate checks that names are valid and unique, balances are
// non-negative, and witnesses name genesis accounts.
func (genesis Genesis) Validate() error {
	if genesis.ChainName == "" {
		return fmt.Errorf("genesis has no chain name")
	}
	names := mapset.NewThreadUnsafeSet[basics.AccountName]()
	for _, a := range genesis.Accounts {
		if err := a.Name.Validate(); err != nil {
			return fmt.Errorf("genesis account: %w", err)
		}
		if !names.Add(a.Name) {
			return fmt.Errorf("genesis account %s listed twice", a.Name)
		}
		if a.Balance < 0 || a.MbdBalance < 0 || a.Vesting < 0 {
			return fmt.Errorf("genesis account %s has a negative balance", a.Name)
		}
	}
	if len(genesis.Witnesses) == 0 {
		return fmt.Errorf("genesis has no witnesses")
	}
	witnesses := mapset.NewThreadUnsafeSet[basics.AccountName]()
	for _, w := range genesis.Witnesses {
		if !names.Contains(w.Owner) {
			return fmt.Errorf("genesis witness %s is not a genesis account", w.Owner)
		}
		if !witnesses.Add(w.Owner) {
			return fmt.Errorf("genesis witness %s listed twice", w.Owner)
		}
		if w.SigningKey.IsZero() {
			return fmt.Errorf("genesis witness %s has no signing key", w.Owner)
		}
	}
	if len(genesis.HardforkTimes) > config.NumHardforks {
		return fmt.Errorf("genesis schedules %d hardforks, only %d exist", len(genesis.HardforkTimes), config.NumHardforks)
	}
	for i := 1; i < len(genesis.HardforkTimes); i++ {
		if genesis.HardforkTimes[i] < genesis.HardforkTimes[i-1] {
			return fmt.Errorf("genesis hardfork times are not ordered")
		}
	}
	return nil
}

// DevGenesisSecrets derives the key of a development account. Every tier
// of a development account uses the same key.
func DevGenesisSecrets(name basics.AccountName) *crypto.SignatureSecrets {
	return crypto.SecretsFromPassphrase("dev:" + string(name))
}

// MakeDevGenesis returns a genesis for local development and tests: the
// named witnesses each get an account with balance and vesting, and every
// hardfork activates at genesis.
func MakeDevGenesis(chainName string, ts basics.Timestamp, witnesses []basics.AccountName, balance, vesting int64) Genesis {
	g := Genesis{ChainName: chainName, Timestamp: ts}
	for _, name := range witnesses {
		pk := DevGenesisSecrets(name).SignatureVerifier
		g.Accounts = append(g.Accounts, GenesisAccount{
			Name:      name,
			OwnerKey:  pk,
			ActiveKey: pk,
			BasicKey:  pk,
			MemoKey:   pk,
			Balance:   balance,
			Vesting:   vesting,
		})
		g.Witnesses = append(g.Witnesses, GenesisWitness{Owner: name, SigningKey: pk, URL: "https://" + string(name) + ".example"})
	}
	for i := 0; i < config.NumHardforks; i++ {
		g.HardforkTimes = append(g.HardforkTimes, ts)
	}
	return g
}
