package memory

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// NewAddressTable creates a new instance of an *AddressTable with
// the specified initial context. Refer to AddressTable's documentation
// for more information.
func NewAddressTable(initialContext string) *AddressTable {
	return &AddressTable{
		currentContext:          initialContext,
		contextToSymbolsToAddrs: make(map[string]map[string]uint64),
	}
}

// AddressTable helps organize memory addresses for symbols in different
// contexts. A context can be (but is not limited to) the name of the
// target environment.
//
// For example, the address of a GOT entry in a test build of a program
// may differ from the one running on the target machine. Rather than
// commenting out variables, track the addresses for the "test" and
// "target" contexts in an AddressTable, and switch between them by
// changing the current context.
type AddressTable struct {
	currentContext          string
	contextToSymbolsToAddrs map[string]map[string]uint64
}

// SetContext sets the current context to the specified value.
func (o *AddressTable) SetContext(context string) *AddressTable {
	o.currentContext = context
	return o
}

// CurrentContext returns the current context.
func (o *AddressTable) CurrentContext() string {
	return o.currentContext
}

// Contexts returns the names of all contexts in sorted order.
func (o *AddressTable) Contexts() []string {
	names := maps.Keys(o.contextToSymbolsToAddrs)
	slices.Sort(names)
	return names
}

// AddSymbolInContext adds or sets the address of a symbol for
// the specified context.
func (o *AddressTable) AddSymbolInContext(symbolName string, address uint64, context string) *AddressTable {
	symbolsToAddrs := o.contextToSymbolsToAddrs[context]
	if symbolsToAddrs == nil {
		symbolsToAddrs = make(map[string]uint64)
		o.contextToSymbolsToAddrs[context] = symbolsToAddrs
	}

	symbolsToAddrs[symbolName] = address

	return o
}

// AddressOrExit calls Address. It calls DefaultExitFn if an error occurs.
func (o *AddressTable) AddressOrExit(symbolName string) uint64 {
	addr, err := o.Address(symbolName)
	if err != nil {
		DefaultExitFn(err)
	}
	return addr
}

// Address returns the address of the specified symbol for the
// currently selected context.
func (o *AddressTable) Address(symbolName string) (uint64, error) {
	symbolsToAddrs, hasIt := o.contextToSymbolsToAddrs[o.currentContext]
	if !hasIt {
		return 0, fmt.Errorf("the current context ('%s') is not in the lookup table",
			o.currentContext)
	}

	addr, hasIt := symbolsToAddrs[symbolName]
	if !hasIt {
		return 0, fmt.Errorf("failed to find the symbol '%s' in the table for '%s'",
			symbolName, o.currentContext)
	}

	return addr, nil
}
