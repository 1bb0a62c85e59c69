package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"florencia/src/helper/config"
)

var _ = Describe("LoadCatalog", func() {
	BeforeEach(func() {
		os.Unsetenv("CATALOG_CATEGORIES")
		os.Unsetenv("CATALOG_RECENT_PRODUCTS")
		os.Unsetenv("CATALOG_PASSWORD_REQUIRE_SPECIAL")
	})

	It("returns the defaults when no file is given", func() {
		// ACT
		catalog, err := config.LoadCatalog("")

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog).To(BeComparableTo(config.DefaultCatalog()))
		Expect(catalog.HasCategory("Bebidas")).To(BeTrue())
		Expect(catalog.HasCategory("Perfumería")).To(BeFalse())
	})

	It("reads the yaml file over the defaults", func() {
		// ARRANGE
		path := filepath.Join(GinkgoT().TempDir(), "catalog.yaml")
		content := []byte(`
categories: [Bebidas, Limpieza]
recent_products: 3
password:
  require_special: false
upload:
  rate_per_second: 1
  burst: 1
  timeout: 5s
`)
		Expect(os.WriteFile(path, content, 0o600)).To(Succeed())

		// ACT
		catalog, err := config.LoadCatalog(path)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Categories).To(Equal([]string{"Bebidas", "Limpieza"}))
		Expect(catalog.RecentProducts).To(Equal(3))
		Expect(catalog.Password.RequireSpecial).To(BeFalse())
		Expect(catalog.Upload.Timeout).To(Equal(5 * time.Second))
	})

	It("lets environment variables override the file", func() {
		// ARRANGE
		GinkgoT().Setenv("CATALOG_CATEGORIES", "Bebidas, Congelados ,")
		GinkgoT().Setenv("CATALOG_RECENT_PRODUCTS", "10")

		// ACT
		catalog, err := config.LoadCatalog("")

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(catalog.Categories).To(Equal([]string{"Bebidas", "Congelados"}))
		Expect(catalog.RecentProducts).To(Equal(10))
	})

	It("rejects an invalid configuration", func() {
		// ARRANGE
		GinkgoT().Setenv("CATALOG_RECENT_PRODUCTS", "-1")

		// ACT
		_, err := config.LoadCatalog("")

		// ASSERT
		Expect(err).To(MatchError(ContainSubstring("recent_products")))
	})

	It("fails when the file does not exist", func() {
		// ACT
		_, err := config.LoadCatalog("/does/not/exist.yaml")

		// ASSERT
		Expect(err).To(HaveOccurred())
	})
})
