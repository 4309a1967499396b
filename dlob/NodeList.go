package dlob

import (
	"fmt"

	"fillergo/common"
	"fillergo/dlob/types"
	"fillergo/lib/drift"
)

type SortDirection int

const (
	SortDirectionAsc SortDirection = iota
	SortDirectionDesc
)

func GetOrderSignature(orderId uint32, userAccount string) string {
	return fmt.Sprintf("%s-%d", userAccount, orderId)
}

// NodeList is a sorted doubly-linked list of order nodes with a signature
// index for O(1) lookup.
type NodeList struct {
	nodeType      types.DLOBNodeType
	sortDirection SortDirection
	head          *OrderNode
	length        int
	nodeMap       map[string]*OrderNode
}

func CreateNodeList(nodeType types.DLOBNodeType, sortDirection SortDirection) *NodeList {
	return &NodeList{
		nodeType:      nodeType,
		sortDirection: sortDirection,
		nodeMap:       make(map[string]*OrderNode),
	}
}

func (p *NodeList) GetLength() int {
	return p.length
}

func (p *NodeList) Insert(order *drift.Order, userAccount string) {
	if order.Status == drift.OrderStatus_Init {
		return
	}
	orderSignature := GetOrderSignature(order.OrderId, userAccount)
	if _, exists := p.nodeMap[orderSignature]; exists {
		return
	}
	newNode := CreateNode(p.nodeType, order, userAccount)
	p.nodeMap[orderSignature] = newNode
	p.length++

	if p.head == nil {
		p.head = newNode
		return
	}

	if p.prependNode(p.head, newNode) {
		p.head.previous = newNode
		newNode.next = p.head
		p.head = newNode
		return
	}
	currentNode := p.head
	for currentNode.next != nil && !p.prependNode(currentNode.next, newNode) {
		currentNode = currentNode.next
	}

	newNode.next = currentNode.next
	if currentNode.next != nil {
		newNode.next.previous = newNode
	}
	currentNode.next = newNode
	newNode.previous = currentNode
}

// prependNode orders equal sort values by ascending placement slot, then by
// order id, so iteration order is deterministic.
func (p *NodeList) prependNode(currentNode *OrderNode, newNode *OrderNode) bool {
	currentSortValue := currentNode.sortValue
	newSortValue := newNode.sortValue

	if newSortValue == currentSortValue {
		if newNode.Order.Slot == currentNode.Order.Slot {
			return newNode.Order.OrderId < currentNode.Order.OrderId
		}
		return newNode.Order.Slot < currentNode.Order.Slot
	}
	if p.sortDirection == SortDirectionAsc {
		return newSortValue < currentSortValue
	}
	return newSortValue > currentSortValue
}

func (p *NodeList) Update(order *drift.Order, userAccount string) {
	orderSignature := GetOrderSignature(order.OrderId, userAccount)
	if node, exists := p.nodeMap[orderSignature]; exists {
		node.Order = order
		node.HaveFilled = false
	}
}

func (p *NodeList) Remove(order *drift.Order, userAccount string) {
	orderSignature := GetOrderSignature(order.OrderId, userAccount)
	node, exists := p.nodeMap[orderSignature]
	if !exists {
		return
	}
	if node.next != nil {
		node.next.previous = node.previous
	}
	if node.previous != nil {
		node.previous.next = node.next
	}
	if p.head == node {
		p.head = node.next
	}
	node.previous = nil
	node.next = nil
	delete(p.nodeMap, orderSignature)
	p.length--
}

func (p *NodeList) Has(order *drift.Order, userAccount string) bool {
	_, exists := p.nodeMap[GetOrderSignature(order.OrderId, userAccount)]
	return exists
}

func (p *NodeList) Get(orderSignature string) *OrderNode {
	return p.nodeMap[orderSignature]
}

func (p *NodeList) GetGenerator() *common.Generator[types.IDLOBNode, int] {
	return common.NewGenerator(func(yield common.YieldFn[types.IDLOBNode, int]) {
		idx := 0
		for node := p.head; node != nil; node = node.next {
			if yield(node, idx) {
				return
			}
			idx++
		}
	})
}
