package market

import "time"

// seedDefaultsLocked installs the stock catalog used when the store is
// empty or the market is reset. Caller holds the write lock.
func (c *Catalog) seedDefaultsLocked() {
	clear(c.categories)
	clear(c.items)
	clear(c.kinds)

	cats := []Category{
		{ID: "blocks", Icon: "stone", DisplayName: "Blocks", Description: "Building materials and decorative blocks", Slot: 10},
		{ID: "tools", Icon: "iron_pickaxe", DisplayName: "Tools & Weapons", Description: "Tools, weapons and useful equipment", Slot: 12},
		{ID: "food", Icon: "bread", DisplayName: "Food & Farming", Description: "Food items and farming supplies", Slot: 14},
		{ID: "materials", Icon: "redstone", DisplayName: "Materials", Description: "Crafting components and mechanisms", Slot: 16},
	}

	items := []Item{
		{ID: "stone", Kind: "stone", DisplayName: "Stone", BuyPrice: 1.0, SellPrice: 0.5, Stock: 1000, CategoryID: "blocks"},
		{ID: "cobblestone", Kind: "cobblestone", DisplayName: "Cobblestone", BuyPrice: 0.8, SellPrice: 0.4, Stock: 1000, CategoryID: "blocks"},
		{ID: "oak_planks", Kind: "oak_planks", DisplayName: "Oak Planks", BuyPrice: 2.0, SellPrice: 1.0, Stock: 500, CategoryID: "blocks"},
		{ID: "glass", Kind: "glass", DisplayName: "Glass", BuyPrice: 3.0, SellPrice: 1.5, Stock: 300, CategoryID: "blocks"},
		{ID: "sand", Kind: "sand", DisplayName: "Sand", BuyPrice: 0.7, SellPrice: 0.3, Stock: 1000, CategoryID: "blocks"},

		{ID: "iron_pickaxe", Kind: "iron_pickaxe", DisplayName: "Iron Pickaxe", BuyPrice: 50.0, SellPrice: 25.0, Stock: 10, CategoryID: "tools"},
		{ID: "stone_sword", Kind: "stone_sword", DisplayName: "Stone Sword", BuyPrice: 15.0, SellPrice: 7.5, Stock: 30, CategoryID: "tools"},
		{ID: "fishing_rod", Kind: "fishing_rod", DisplayName: "Fishing Rod", BuyPrice: 20.0, SellPrice: 10.0, Stock: 15, CategoryID: "tools"},
		{ID: "bow", Kind: "bow", DisplayName: "Bow", BuyPrice: 30.0, SellPrice: 15.0, Stock: 10, CategoryID: "tools"},

		{ID: "bread", Kind: "bread", DisplayName: "Bread", BuyPrice: 5.0, SellPrice: 2.5, Stock: 100, CategoryID: "food"},
		{ID: "wheat", Kind: "wheat", DisplayName: "Wheat", BuyPrice: 2.0, SellPrice: 1.0, Stock: 200, CategoryID: "food"},
		{ID: "apple", Kind: "apple", DisplayName: "Apple", BuyPrice: 4.0, SellPrice: 2.0, Stock: 150, CategoryID: "food"},
		{ID: "cooked_beef", Kind: "cooked_beef", DisplayName: "Cooked Beef", BuyPrice: 8.0, SellPrice: 4.0, Stock: 50, CategoryID: "food"},

		{ID: "redstone", Kind: "redstone", DisplayName: "Redstone Dust", BuyPrice: 3.0, SellPrice: 1.5, Stock: 100, CategoryID: "materials"},
		{ID: "piston", Kind: "piston", DisplayName: "Piston", BuyPrice: 20.0, SellPrice: 10.0, Stock: 25, CategoryID: "materials"},
		{ID: "torch", Kind: "torch", DisplayName: "Torch", BuyPrice: 1.0, SellPrice: 0.5, Stock: 500, CategoryID: "materials"},
	}

	now := time.Now()
	for i := range cats {
		cat := cats[i]
		c.categories[cat.ID] = &cat
	}
	for i := range items {
		it := items[i]
		it.LastUpdated = now
		c.items[it.ID] = &it
		c.kinds[it.Kind] = &it
	}
}
