package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/wansing/buzz/record"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoCredential     = errors.New("no credential")
	ErrPermissionDenied = errors.New("permission denied")
)

type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

var Actions = []Action{Read, Create, Update, Delete}

// Table maps an action to the titles which may perform it. An absent action allows nobody.
type Table map[Action][]Title

// Policies maps a collection name to its table.
type Policies map[string]Table

// Collection returns the name of the published or pending collection of a record type, like "jokes_public" or "jokes_private".
func Collection(t record.Type, published bool) string {
	if published {
		return string(t) + "_public"
	}
	return string(t) + "_private"
}

// DefaultPolicies returns a fresh copy of the built-in role matrix.
func DefaultPolicies() Policies {
	var policies = make(Policies)
	for _, t := range record.Types {
		policies[Collection(t, true)] = Table{
			Read:   {Employee, Manager},
			Create: {Manager},
			Update: {Manager},
			Delete: {Manager},
		}
		policies[Collection(t, false)] = Table{
			Read:   {Manager},
			Create: {Employee, Manager},
			Update: {Manager},
			Delete: {Manager},
		}
	}
	return policies
}

// Table returns the table of a collection. Unknown collections get an empty table.
func (p Policies) Table(collection string) Table {
	if table, ok := p[collection]; ok {
		return table
	}
	return Table{}
}

// Decide reports whether the role may perform the action.
func Decide(role Title, action Action, table Table) bool {
	for _, allowed := range table[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize checks for a credential before consulting the table.
func Authorize(cred *Credential, action Action, table Table) error {
	if cred == nil {
		return ErrNoCredential
	}
	if !Decide(cred.Title, action, table) {
		return ErrPermissionDenied
	}
	return nil
}

// LoadPolicies reads a YAML file of the form
//
//	jokes_public:
//	  read: [Employee, Manager]
//	  create: [Manager]
//
// Collections which are named in the file replace the defaults, others keep them.
func LoadPolicies(path string) (Policies, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var loaded map[string]map[string][]string
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	var policies = DefaultPolicies()
	for collection, actions := range loaded {
		var table = Table{}
		for action, titles := range actions {
			if !validAction(Action(action)) {
				return nil, fmt.Errorf("%s: unknown action %q", collection, action)
			}
			for _, title := range titles {
				if title != string(Employee) && title != string(Manager) {
					return nil, fmt.Errorf("%s.%s: unknown title %q", collection, action, title)
				}
				table[Action(action)] = append(table[Action(action)], Title(title))
			}
		}
		policies[collection] = table
	}
	return policies, nil
}

func validAction(a Action) bool {
	for _, action := range Actions {
		if a == action {
			return true
		}
	}
	return false
}
