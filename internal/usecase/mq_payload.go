package usecase

import "encoding/json"

// MQPayload 包装下游消息，附带类型标识和电池组地址
type MQPayload struct {
	Type string      `json:"type"`
	Pack string      `json:"pack"`
	Data interface{} `json:"data"`
}

// MarshalJSON 将 msgType 和 pack 注入 data 字段内部,
// 下游消费者不必解两层结构即可按组过滤。
func (p MQPayload) MarshalJSON() ([]byte, error) {
	dataBytes, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}

	var dataMap map[string]interface{}
	if err := json.Unmarshal(dataBytes, &dataMap); err != nil {
		// Data 不是对象 (理论上不会发生, Data 总是结构体), 退回默认编码
		type Alias MQPayload
		return json.Marshal(Alias(p))
	}

	dataMap["msgType"] = p.Type
	dataMap["pack"] = p.Pack

	return json.Marshal(&struct {
		Type string                 `json:"type"`
		Pack string                 `json:"pack"`
		Data map[string]interface{} `json:"data"`
	}{
		Type: p.Type,
		Pack: p.Pack,
		Data: dataMap,
	})
}
