package spatial

import "gonum.org/v1/gonum/spatial/r3"

// mesh 三角网格，面与顶点ID只增不复用
type mesh struct {
	vertices   map[uint32]r3.Vec
	degree     map[uint32]int // 顶点关联的面数
	faces      map[uint32][3]uint32
	nextVertex uint32
	nextFace   uint32
}

func newMesh() *mesh {
	return &mesh{
		vertices: make(map[uint32]r3.Vec),
		degree:   make(map[uint32]int),
		faces:    make(map[uint32][3]uint32),
	}
}

func (m *mesh) addVertex(p r3.Vec) uint32 {
	id := m.nextVertex
	m.nextVertex++
	m.vertices[id] = p
	return id
}

func (m *mesh) addFace(a, b, c uint32) uint32 {
	id := m.nextFace
	m.nextFace++
	m.faces[id] = [3]uint32{a, b, c}
	for _, v := range [3]uint32{a, b, c} {
		m.degree[v]++
	}
	return id
}

// removeFace 删除面，并删除因此不再关联任何面的顶点
func (m *mesh) removeFace(id uint32) bool {
	f, ok := m.faces[id]
	if !ok {
		return false
	}
	delete(m.faces, id)
	for _, v := range f {
		m.degree[v]--
		if m.degree[v] <= 0 {
			delete(m.degree, v)
			delete(m.vertices, v)
		}
	}
	return true
}

func (m *mesh) triangle(id uint32) [3]r3.Vec {
	f := m.faces[id]
	return [3]r3.Vec{m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]]}
}
