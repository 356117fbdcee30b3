package session

import (
	"fmt"

	"layerlab/internal/activation"
)

// EditKind enumerates the user-facing edit surface.
type EditKind int

const (
	EditAddLayer EditKind = iota + 1
	EditRemoveLayer
	EditAddNode
	EditRemoveNode
	EditSetHiddenActivation
	EditSetOutputActivation
)

func (k EditKind) String() string {
	switch k {
	case EditAddLayer:
		return "add-layer"
	case EditRemoveLayer:
		return "remove-layer"
	case EditAddNode:
		return "add-node"
	case EditRemoveNode:
		return "remove-node"
	case EditSetHiddenActivation:
		return "hidden-activation"
	case EditSetOutputActivation:
		return "output-activation"
	default:
		return fmt.Sprintf("edit(%d)", int(k))
	}
}

// Edit is one user action. Layer is used by node edits, Activation by activation edits.
type Edit struct {
	Kind       EditKind
	Layer      string
	Activation activation.Name
}

func (e Edit) String() string {
	switch e.Kind {
	case EditAddNode, EditRemoveNode:
		return fmt.Sprintf("%s %s", e.Kind, e.Layer)
	case EditSetHiddenActivation, EditSetOutputActivation:
		return fmt.Sprintf("%s %s", e.Kind, e.Activation)
	default:
		return e.Kind.String()
	}
}

func AddLayer() Edit    { return Edit{Kind: EditAddLayer} }
func RemoveLayer() Edit { return Edit{Kind: EditRemoveLayer} }

func AddNode(layer string) Edit    { return Edit{Kind: EditAddNode, Layer: layer} }
func RemoveNode(layer string) Edit { return Edit{Kind: EditRemoveNode, Layer: layer} }

func SetHiddenActivation(a activation.Name) Edit {
	return Edit{Kind: EditSetHiddenActivation, Activation: a}
}

func SetOutputActivation(a activation.Name) Edit {
	return Edit{Kind: EditSetOutputActivation, Activation: a}
}

// ParseEdit maps a command name and optional argument onto an Edit.
func ParseEdit(name, arg string) (Edit, error) {
	switch name {
	case "add-layer":
		return AddLayer(), nil
	case "remove-layer":
		return RemoveLayer(), nil
	case "add-node", "remove-node":
		if arg == "" {
			return Edit{}, fmt.Errorf("%s requires a layer name", name)
		}
		if name == "add-node" {
			return AddNode(arg), nil
		}
		return RemoveNode(arg), nil
	case "hidden-activation", "output-activation":
		act, err := activation.Parse(arg)
		if err != nil {
			return Edit{}, err
		}
		if name == "hidden-activation" {
			return SetHiddenActivation(act), nil
		}
		return SetOutputActivation(act), nil
	default:
		return Edit{}, fmt.Errorf("unknown edit: %s", name)
	}
}
