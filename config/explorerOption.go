package config

import "consensusmc/explorer"

type StrategyOption struct {
	Strategy explorer.Strategy
}

func (so StrategyOption) ExplorerOpt() {}

type MaxStatesOption struct{ MaxStates int }

func (mso MaxStatesOption) ExplorerOpt() {}
