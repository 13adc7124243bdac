package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/buildflow/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Task — определение задачи.
	Task *domain.TaskDef

	// ID — нормализованное имя задачи (см. Key).
	ID string

	// Index — позиция задачи в определении пайплайна.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	// Сначала явные DependsOn, затем обратные рёбра DependentFor.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Name возвращает имя задачи в том виде, как оно объявлено.
func (n *Node) Name() string {
	return n.Task.Name
}

// DAG — направленный ациклический граф задач пайплайна.
type DAG struct {
	// Nodes — все узлы графа (ID → Node).
	Nodes map[string]*Node

	// RootNodes — узлы без зависимостей (точки входа).
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node

	// declared — узлы в порядке объявления.
	declared []*Node
}

// BuildDAG валидирует определения задач и строит DAG.
//
// Цикл в зависимостях — ошибка конфигурации: она возвращается здесь,
// до того как выполнится хоть один action.
func BuildDAG(defs []domain.TaskDef) (*DAG, error) {
	if err := Validate(defs); err != nil {
		return nil, err
	}

	dag := &DAG{
		Nodes:     make(map[string]*Node, len(defs)),
		RootNodes: make([]*Node, 0),
		declared:  make([]*Node, 0, len(defs)),
	}

	// Первый проход: создаём все узлы
	for i := range defs {
		dag.addNode(&defs[i], i)
	}

	// Второй проход: явные зависимости
	for _, node := range dag.declared {
		for _, dep := range node.Task.DependsOn {
			dag.addEdge(dag.Nodes[Key(dep)], node)
		}
	}

	// Третий проход: обратные рёбра DependentFor
	for _, node := range dag.declared {
		for _, dependent := range node.Task.DependentFor {
			dag.addEdge(node, dag.Nodes[Key(dependent)])
		}
	}

	dag.findRootNodes()

	// Проверяем на циклы и строим топологический порядок
	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// addNode добавляет узел в DAG.
func (d *DAG) addNode(def *domain.TaskDef, index int) {
	node := &Node{
		Task:       def,
		ID:         Key(def.Name),
		Index:      index,
		DependsOn:  make([]*Node, 0),
		Dependents: make([]*Node, 0),
	}
	d.Nodes[node.ID] = node
	d.declared = append(d.declared, node)
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (d *DAG) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер (в порядке объявления).
func (d *DAG) findRootNodes() {
	d.RootNodes = make([]*Node, 0)
	for _, node := range d.declared {
		if node.InDegree == 0 {
			d.RootNodes = append(d.RootNodes, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Возвращает ошибку, если обнаружен цикл.
func (d *DAG) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[string]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make([]*Node, len(d.RootNodes))
	copy(queue, d.RootNodes)

	order := make([]*Node, 0, len(d.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл
	if len(order) != len(d.Nodes) {
		cyclic := make([]string, 0, len(d.Nodes)-len(order))
		for _, node := range d.declared {
			if inDegree[node.ID] > 0 {
				cyclic = append(cyclic, node.Name())
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(cyclic, ", "))
	}

	return order, nil
}

// GetNode возвращает узел по имени задачи (без учёта регистра).
func (d *DAG) GetNode(name string) *Node {
	return d.Nodes[Key(name)]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// Listed возвращает задачи, не помеченные как Unlisted, в порядке объявления.
func (d *DAG) Listed() []*Node {
	nodes := make([]*Node, 0, len(d.declared))
	for _, node := range d.declared {
		if !node.Task.Unlisted {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Closure возвращает target и все его транзитивные зависимости
// в порядке выполнения.
//
// Порядок — обход в глубину с выдачей узла после всех его зависимостей;
// зависимости посещаются в порядке объявления. Каждый узел встречается один раз.
func (d *DAG) Closure(target string) ([]*Node, error) {
	root := d.GetNode(target)
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}

	visited := make(map[string]bool)
	plan := make([]*Node, 0)

	var visit func(node *Node)
	visit = func(node *Node) {
		if visited[node.ID] {
			return
		}
		visited[node.ID] = true
		for _, dep := range node.DependsOn {
			visit(dep)
		}
		plan = append(plan, node)
	}
	visit(root)

	return plan, nil
}

// Names возвращает отсортированные имена всех задач (для сообщений об ошибках).
func (d *DAG) Names() []string {
	names := make([]string, 0, len(d.declared))
	for _, node := range d.declared {
		names = append(names, node.Name())
	}
	sort.Strings(names)
	return names
}
