// Package chainspec owns the build → customize → raw transformation
// pipeline for a chain's JSON chain specification, ported from the
// reference orchestrator's chain_spec.rs (spec.md §4.4).
package chainspec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zombienet-go/zombienet/internal/fs"
	"github.com/zombienet-go/zombienet/internal/keys"
	"github.com/zombienet-go/zombienet/internal/netspec"
	"github.com/zombienet-go/zombienet/internal/zerr"
)

// Context says whether a ChainSpec belongs to the relay chain or a
// parachain; CustomizePara and CustomizeRelay apply different pointer
// mutations.
type Context int

const (
	Relay Context = iota
	Para
)

// candidateRuntimePointers are probed in order; the first that exists in
// the document is used as the root for every subsequent mutation.
var candidateRuntimePointers = []jsonPointer{
	"/genesis/runtimeGenesisConfigPatch",
	"/genesis/runtime/runtime_genesis_config",
	"/genesis/runtime",
}

// AssetLocation is either a local file to copy in as the plain spec, or a
// command template that builds one.
type AssetLocation struct {
	FilePath string
}

// ChainSpec owns one chain's plain/raw JSON document and the paths it's
// materialized at under the namespace's base dir.
type ChainSpec struct {
	Name          string
	Context       Context
	AssetLocation *AssetLocation
	Command       string
	ChainName     string

	plainPath string
	rawPath   string
}

// New returns a ChainSpec for the given logical name (e.g. "rococo-local"
// or a parachain id), bound to a build command.
func New(name string, ctx Context, command string) *ChainSpec {
	return &ChainSpec{Name: name, Context: ctx, Command: command}
}

// WithAssetLocation configures the spec to be built by copying a local
// file rather than invoking the command.
func (cs *ChainSpec) WithAssetLocation(path string) *ChainSpec {
	cs.AssetLocation = &AssetLocation{FilePath: path}
	return cs
}

// WithChainName sets the `--chain <name>` argument used at build time.
func (cs *ChainSpec) WithChainName(name string) *ChainSpec {
	cs.ChainName = name
	return cs
}

// RawPath returns the raw chain-spec path once build_raw has run, or "".
func (cs *ChainSpec) RawPath() string {
	return cs.rawPath
}

// PlainPath returns the plain chain-spec path, or "" if none was produced
// (the source was already raw).
func (cs *ChainSpec) PlainPath() string {
	return cs.plainPath
}

// commandRunner executes a build command (e.g. `<binary> build-spec ...`)
// and writes its captured stdout to destPath. The namespace implementation supplies
// this (spec.md §4.6's generate_files).
type commandRunner interface {
	GenerateFile(ctx context.Context, program string, args []string, destPath string) error
}

// Build produces the plain chain-spec file, either by copying the
// configured asset or by invoking the build command, then checks whether
// the result is already raw.
func (cs *ChainSpec) Build(ctx context.Context, runner commandRunner, scoped *fs.ScopedFilesystem) error {
	if cs.AssetLocation == nil && cs.Command == "" {
		return zerr.ChainSpecGeneration("cannot build chain spec without a command or asset location", nil)
	}

	plainPath := cs.Name + "-plain.json"

	if cs.AssetLocation != nil {
		if err := scoped.CopyFiles(ctx, []fs.TransferredFile{{LocalPath: cs.AssetLocation.FilePath, RemotePath: plainPath}}); err != nil {
			return zerr.ChainSpecGeneration(fmt.Sprintf("copying chain-spec asset for %s", cs.Name), err)
		}
	} else {
		args := []string{"build-spec"}
		if cs.ChainName != "" {
			args = append(args, "--chain", cs.ChainName)
		}
		args = append(args, "--disable-default-bootnode")
		if err := runner.GenerateFile(ctx, cs.Command, args, plainPath); err != nil {
			return zerr.ChainSpecGeneration(fmt.Sprintf("running build-spec for %s", cs.Name), err)
		}
	}

	raw, err := cs.isRaw(ctx, scoped, plainPath)
	if err != nil {
		return err
	}
	if raw {
		cs.rawPath = plainPath
	} else {
		cs.plainPath = plainPath
	}
	return nil
}

func (cs *ChainSpec) isRaw(ctx context.Context, scoped *fs.ScopedFilesystem, path string) (bool, error) {
	content, err := scoped.ReadToString(ctx, path)
	if err != nil {
		return false, zerr.ChainSpecGeneration(fmt.Sprintf("reading chain-spec from %s", path), err)
	}
	return gjson.Get(content, "genesis.raw.top").Exists(), nil
}

// readPath reports which of plainPath/rawPath is currently authoritative;
// if both are set, raw wins (a raw spec is never re-customized).
func (cs *ChainSpec) readPath() (path string, isRaw bool, err error) {
	switch {
	case cs.rawPath != "":
		return cs.rawPath, true, nil
	case cs.plainPath != "":
		return cs.plainPath, false, nil
	default:
		return "", false, zerr.ChainSpecGeneration("chain-spec has neither a plain nor raw path", nil)
	}
}

func (cs *ChainSpec) readDoc(ctx context.Context, scoped *fs.ScopedFilesystem) (map[string]interface{}, string, bool, error) {
	path, isRaw, err := cs.readPath()
	if err != nil {
		return nil, "", false, err
	}
	content, err := scoped.ReadToString(ctx, path)
	if err != nil {
		return nil, "", false, zerr.ChainSpecGeneration(fmt.Sprintf("reading chain-spec from %s", path), err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, "", false, zerr.ChainSpecGeneration("chain-spec is not valid JSON", err)
	}
	return doc, path, isRaw, nil
}

func (cs *ChainSpec) writeDoc(ctx context.Context, scoped *fs.ScopedFilesystem, doc map[string]interface{}) error {
	path, _, err := cs.readPath()
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return zerr.ChainSpecGeneration("encoding chain-spec as json", err)
	}
	if err := scoped.Write(ctx, path, string(out)); err != nil {
		return zerr.ChainSpecGeneration(fmt.Sprintf("writing chain-spec to %s", path), err)
	}
	return nil
}

// runtimeConfigPointer finds the first candidate pointer that exists in
// the document.
func runtimeConfigPointer(doc map[string]interface{}) (jsonPointer, error) {
	for _, candidate := range candidateRuntimePointers {
		if exists(doc, candidate) {
			return candidate, nil
		}
	}
	return "", zerr.ChainSpecGeneration("cannot find the runtime config pointer", nil)
}

// ParaGenesisConfig is one parachain's built genesis artifacts, ready to
// be injected into the relay chain-spec.
type ParaGenesisConfig struct {
	ID          uint32
	StatePath   string
	WasmPath    string
	AsParachain bool
}

// CustomizeRelay applies the relay-chain mutation pipeline: clear
// authorities, add balances, add authorities, inject every parachain's
// genesis artifacts. A no-op if the spec is already raw.
func (cs *ChainSpec) CustomizeRelay(ctx context.Context, scoped *fs.ScopedFilesystem, relay *netspec.RelaychainSpec, paras []ParaGenesisConfig) error {
	doc, _, isRaw, err := cs.readDoc(ctx, scoped)
	if err != nil {
		return err
	}
	if isRaw {
		return nil
	}

	pointer, err := runtimeConfigPointer(doc)
	if err != nil {
		return err
	}

	clearAuthorities(doc, pointer)
	addBalances(doc, pointer, relay.Nodes, 0)

	validators := filterNodes(relay.Nodes, func(n *netspec.NodeSpec) bool { return n.IsValidator })
	if exists(doc, pointer.join("session")) {
		addSessionAuthorities(doc, pointer, validators)
	}

	for _, para := range paras {
		if err := addParachainToGenesis(ctx, scoped, doc, pointer, para); err != nil {
			return err
		}
	}

	return cs.writeDoc(ctx, scoped, doc)
}

// CustomizePara applies the parachain mutation pipeline: clear
// authorities, set aura authorities or session keys, set
// collatorSelection invulnerables, set para_id/relay_chain/parachainInfo.
func (cs *ChainSpec) CustomizePara(ctx context.Context, scoped *fs.ScopedFilesystem, para *netspec.ParachainSpec, relayChainID string) error {
	doc, _, isRaw, err := cs.readDoc(ctx, scoped)
	if err != nil {
		return err
	}
	if isRaw {
		return nil
	}

	if _, ok := doc["para_id"]; ok {
		doc["para_id"] = para.ID
	}
	if _, ok := doc["paraId"]; ok {
		doc["paraId"] = para.ID
	}
	if _, ok := doc["relay_chain"]; ok {
		doc["relay_chain"] = relayChainID
	}

	pointer, err := runtimeConfigPointer(doc)
	if err != nil {
		return err
	}

	clearAuthorities(doc, pointer)

	validators := filterNodes(para.Collators, func(n *netspec.NodeSpec) bool { return n.IsValidator })
	if exists(doc, pointer.join("session")) {
		addSessionAuthorities(doc, pointer, validators)
	} else {
		addAuraAuthorities(doc, pointer, validators)
		invulnerables := filterNodes(para.Collators, func(n *netspec.NodeSpec) bool { return n.IsInvulnerable })
		addCollatorSelection(doc, pointer, invulnerables)
	}

	overrideParachainInfo(doc, pointer, para.ID)

	return cs.writeDoc(ctx, scoped, doc)
}

// BuildRaw invokes the build command in --raw mode. A no-op if the raw
// path is already set (a raw spec is never re-customized).
func (cs *ChainSpec) BuildRaw(ctx context.Context, runner commandRunner, baseDir string) error {
	if cs.rawPath != "" {
		return nil
	}
	if cs.plainPath == "" {
		return zerr.ChainSpecGeneration("no plain chain-spec to build raw from", nil)
	}

	rawPath := cs.Name + ".json"
	args := []string{
		"build-spec",
		"--chain", baseDir + "/" + cs.plainPath,
		"--raw",
		"--disable-default-bootnode",
	}
	if err := runner.GenerateFile(ctx, cs.Command, args, rawPath); err != nil {
		return zerr.ChainSpecGeneration(fmt.Sprintf("running build-spec --raw for %s", cs.Name), err)
	}
	cs.rawPath = rawPath
	return nil
}

// AddBootnodes appends multiaddrs to the top-level bootNodes array.
func (cs *ChainSpec) AddBootnodes(ctx context.Context, scoped *fs.ScopedFilesystem, bootnodes []string) error {
	doc, _, _, err := cs.readDoc(ctx, scoped)
	if err != nil {
		return err
	}

	existing, ok := doc["bootNodes"]
	if !ok {
		return zerr.ChainSpecGeneration("'bootNodes' field missing from chain-spec", nil)
	}
	arr, ok := existing.([]interface{})
	if !ok {
		return zerr.ChainSpecGeneration("'bootNodes' is not an array in chain-spec", nil)
	}
	for _, bn := range bootnodes {
		arr = append(arr, bn)
	}
	doc["bootNodes"] = arr

	return cs.writeDoc(ctx, scoped, doc)
}

// ReadChainID parses the spec and returns its top-level `id` field.
func (cs *ChainSpec) ReadChainID(ctx context.Context, scoped *fs.ScopedFilesystem) (string, error) {
	doc, _, _, err := cs.readDoc(ctx, scoped)
	if err != nil {
		return "", err
	}
	idVal, ok := doc["id"]
	if !ok {
		return "", zerr.ChainSpecGeneration("'id' field missing from chain-spec", nil)
	}
	id, ok := idVal.(string)
	if !ok {
		return "", zerr.ChainSpecGeneration("'id' field is not a string in chain-spec, this is a bug", nil)
	}
	return id, nil
}

func filterNodes(nodes []*netspec.NodeSpec, pred func(*netspec.NodeSpec) bool) []*netspec.NodeSpec {
	out := make([]*netspec.NodeSpec, 0, len(nodes))
	for _, n := range nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

func sessionKeySlots(account keys.Account, ed, ec keys.Account) map[string]string {
	m := map[string]string{}
	for _, slot := range []string{
		"babe", "im_online", "parachain_validator", "authority_discovery",
		"para_validator", "para_assignment", "aura", "nimbus", "vrf",
	} {
		m[slot] = account.Address
	}
	m["grandpa"] = ed.Address
	m["beefy"] = ec.Address
	return m
}

func addSessionAuthorities(doc map[string]interface{}, pointer jsonPointer, nodes []*netspec.NodeSpec) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}
	entries := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		sr := n.Accounts[keys.Sr]
		ed := n.Accounts[keys.Ed]
		ec := n.Accounts[keys.Ec]
		entries = append(entries, []interface{}{sr.Address, sr.Address, sessionKeySlots(sr, ed, ec)})
	}
	sessionMap, _ := val["session"].(map[string]interface{})
	if sessionMap == nil {
		sessionMap = map[string]interface{}{}
		val["session"] = sessionMap
	}
	sessionMap["keys"] = entries
}

func addAuraAuthorities(doc map[string]interface{}, pointer jsonPointer, nodes []*netspec.NodeSpec) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}
	addrs := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, n.Accounts[keys.Sr].Address)
	}
	auraMap, _ := val["aura"].(map[string]interface{})
	if auraMap == nil {
		auraMap = map[string]interface{}{}
		val["aura"] = auraMap
	}
	auraMap["authorities"] = addrs
}

func addCollatorSelection(doc map[string]interface{}, pointer jsonPointer, nodes []*netspec.NodeSpec) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}
	cs, ok := val["collatorSelection"].(map[string]interface{})
	if !ok {
		return
	}
	addrs := make([]interface{}, 0, len(nodes))
	for _, n := range nodes {
		addrs = append(addrs, n.Accounts[keys.Sr].Address)
	}
	cs["invulnerables"] = addrs
}

func overrideParachainInfo(doc map[string]interface{}, pointer jsonPointer, paraID uint32) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}
	info, ok := val["parachainInfo"].(map[string]interface{})
	if !ok {
		return
	}
	if _, ok := info["parachainId"]; ok {
		info["parachainId"] = paraID
	}
}

func clearAuthorities(doc map[string]interface{}, pointer jsonPointer) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}

	if session, ok := val["session"].(map[string]interface{}); ok {
		session["keys"] = []interface{}{}
	}
	if aura, ok := val["aura"].(map[string]interface{}); ok {
		aura["authorities"] = []interface{}{}
	}
	if grandpa, ok := val["grandpa"].(map[string]interface{}); ok {
		grandpa["authorities"] = []interface{}{}
	}
	if cs, ok := val["collatorSelection"].(map[string]interface{}); ok {
		cs["invulnerables"] = []interface{}{}
	}
	if staking, ok := val["staking"].(map[string]interface{}); ok {
		staking["stakers"] = []interface{}{}
		staking["invulnerables"] = []interface{}{}
		staking["validatorCount"] = 0
	}
}

func addBalances(doc map[string]interface{}, pointer jsonPointer, nodes []*netspec.NodeSpec, stakingMin uint64) {
	val, ok := navigate(doc, pointer)
	if !ok {
		return
	}
	balancesSection, ok := val["balances"].(map[string]interface{})
	if !ok {
		return
	}
	existing, ok := balancesSection["balances"].([]interface{})
	if !ok {
		return
	}

	balances := map[string]uint64{}
	order := make([]string, 0, len(existing))
	for _, entry := range existing {
		pair, ok := entry.([]interface{})
		if !ok || len(pair) != 2 {
			continue
		}
		addr, _ := pair[0].(string)
		amount := toUint64(pair[1])
		if _, seen := balances[addr]; !seen {
			order = append(order, addr)
		}
		balances[addr] = amount
	}

	for _, n := range nodes {
		if n.InitialBalance == 0 {
			continue
		}
		sr := n.Accounts[keys.Sr]
		amount := n.InitialBalance
		if stakingMin > amount {
			amount = stakingMin
		}
		if _, seen := balances[sr.Address]; !seen {
			order = append(order, sr.Address)
		}
		balances[sr.Address] = amount
	}

	newBalances := make([]interface{}, 0, len(order))
	for _, addr := range order {
		newBalances = append(newBalances, []interface{}{addr, balances[addr]})
	}
	balancesSection["balances"] = newBalances
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case json.Number:
		i, _ := n.Int64()
		return uint64(i)
	default:
		return 0
	}
}

func addParachainToGenesis(ctx context.Context, scoped *fs.ScopedFilesystem, doc map[string]interface{}, pointer jsonPointer, para ParaGenesisConfig) error {
	val, ok := navigate(doc, pointer)
	if !ok {
		return zerr.ChainSpecGeneration("runtime config pointer is not a json object", nil)
	}

	var parasPointer jsonPointer = "paras"
	if _, ok := val["paras"]; ok {
		parasPointer = "paras"
	} else if _, ok := val["parachainsParas"]; ok {
		parasPointer = "parachainsParas"
	} else {
		val["paras"] = map[string]interface{}{"paras": []interface{}{}}
		parasPointer = "paras"
	}

	parasSection, ok := val[string(parasPointer)].(map[string]interface{})
	if !ok {
		return zerr.ChainSpecGeneration("paras section is not a json object", nil)
	}
	parasList, ok := parasSection["paras"].([]interface{})
	if !ok {
		return zerr.ChainSpecGeneration("paras.paras is not an array", nil)
	}

	head, err := scoped.ReadToString(ctx, para.StatePath)
	if err != nil {
		return zerr.ChainSpecGeneration(fmt.Sprintf("reading genesis state for para %d", para.ID), err)
	}
	wasm, err := scoped.ReadToString(ctx, para.WasmPath)
	if err != nil {
		return zerr.ChainSpecGeneration(fmt.Sprintf("reading genesis wasm for para %d", para.ID), err)
	}

	parasList = append(parasList, []interface{}{
		para.ID,
		[]interface{}{strings.TrimSpace(head), strings.TrimSpace(wasm), para.AsParachain},
	})
	parasSection["paras"] = parasList
	return nil
}
