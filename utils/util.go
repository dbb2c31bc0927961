package utils

// Find 按ID取出数据
// 参数：dataMap-ID到数据的映射，ids-需要的ID，为空时返回all
// 返回：找到的数据（按ids顺序）与不存在的ID
func Find[K comparable, T any](dataMap map[K]T, all []T, ids []K) (found []T, missing []K) {
	if len(ids) == 0 {
		return all, nil
	}
	found = make([]T, 0, len(ids))
	for _, id := range ids {
		if d, ok := dataMap[id]; ok {
			found = append(found, d)
		} else {
			missing = append(missing, id)
		}
	}
	return
}
